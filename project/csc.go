package project

import (
	"context"
	"fmt"

	"github.com/go-ldap/ldap"
)

// CSCService is the "csc" deployment flavor: project membership is
// resolved by querying an LDAP directory for the user's CSCPrjNum values.
type CSCService struct {
	Addr     string // host:port, passed to ldap.Dial
	BindDN   string
	BindPass string
	BaseDN   string
}

// NewCSCService builds the csc flavor bound to the given directory.
func NewCSCService(addr, bindDN, bindPass, baseDN string) *CSCService {
	return &CSCService{Addr: addr, BindDN: bindDN, BindPass: bindPass, BaseDN: baseDN}
}

// ProjectsFor queries LDAP with the filter
// (&(objectClass=applicationProcess)(CSCSPCommonStatus=ready)(CSCUserName=<u>))
// verbatim from spec.md §4.G, returning every CSCPrjNum attribute value
// found across the matching entries.
func (s *CSCService) ProjectsFor(ctx context.Context, userID string) ([]string, error) {
	conn, err := ldap.Dial("tcp", s.Addr)
	if err != nil {
		return nil, fmt.Errorf("project: ldap dial: %w", err)
	}
	defer conn.Close()

	if err := conn.Bind(s.BindDN, s.BindPass); err != nil {
		return nil, fmt.Errorf("project: ldap bind: %w", err)
	}

	filter := fmt.Sprintf(
		"(&(objectClass=applicationProcess)(CSCSPCommonStatus=ready)(CSCUserName=%s))",
		ldap.EscapeFilter(userID),
	)
	req := ldap.NewSearchRequest(
		s.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		filter,
		[]string{"CSCPrjNum"},
		nil,
	)

	result, err := conn.Search(req)
	if err != nil {
		return nil, fmt.Errorf("project: ldap search: %w", err)
	}

	var projects []string
	for _, entry := range result.Entries {
		projects = append(projects, entry.GetAttributeValues("CSCPrjNum")...)
	}
	return projects, nil
}
