package objectsvc

import "errors"

// ErrNoXML is returned by GetObject when format=xml is requested but the
// object has no stored XML counterpart.
var ErrNoXML = errors.New("objectsvc: object has no stored xml")

// ErrMultiplicity is returned when a second object is submitted for a
// schema the workflow marks as single-valued.
var ErrMultiplicity = errors.New("objectsvc: object_type does not allow multiple objects")

// ErrUndeletable is returned by DeleteObject for object types the workflow
// treats as submission-level singletons (bprems).
var ErrUndeletable = errors.New("objectsvc: object_type cannot be deleted individually")
