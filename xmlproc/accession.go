package xmlproc

import (
	"crypto/sha256"
	"encoding/base32"
	"strings"

	"github.com/CSCfi/metadata-submitter-go/idgen"
	"github.com/CSCfi/metadata-submitter-go/store"
)

// bpHashLen is how many base32 characters of the digest are kept after
// the center-id prefix, long enough to make collisions practically
// impossible within one center's submissions.
const bpHashLen = 26

// mintAccessionID produces the accession_id for a newly split logical
// object, per spec.md §4.C: a random UUID v4 for FEGA/SD, and a
// deterministic center-prefixed hash for BP so that replaying the same
// submitted name yields the same ID.
func mintAccessionID(wf store.Workflow, centerID, submissionID, objectType, name string, gen idgen.Generator) string {
	if wf != store.WorkflowBP {
		return gen()
	}
	return bpAccessionID(centerID, submissionID, objectType, name)
}

// MintAccessionID is the exported form of mintAccessionID, used by the
// HTTP layer when a single JSON object arrives outside a multipart bundle
// (POST /objects/{schema}) and still needs the same BP-deterministic /
// FEGA-random minting rule applied to it.
func MintAccessionID(wf store.Workflow, centerID, submissionID, objectType, name string, gen idgen.Generator) string {
	return mintAccessionID(wf, centerID, submissionID, objectType, name, gen)
}

// bpAccessionID computes SHA-256(center_id + "/" + submission_id + "/" +
// object_type + "/" + name), base32-encodes it, truncates to bpHashLen
// characters, and prefixes it with "<center_id>-".
func bpAccessionID(centerID, submissionID, objectType, name string) string {
	sum := sha256.Sum256([]byte(centerID + "/" + submissionID + "/" + objectType + "/" + name))
	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(sum[:])
	if len(encoded) > bpHashLen {
		encoded = encoded[:bpHashLen]
	}
	return centerID + "-" + strings.ToLower(encoded)
}
