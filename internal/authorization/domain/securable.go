package domain

// SecurableObjectType names the domain meaning of an acl key shape. The
// authorization core treats it as an opaque label used to scope
// authorized-object scans and cascading deletes; the catalog registry owns
// the mapping from key shapes to types.
type SecurableObjectType string

const (
	// ObjectTypeEntitySet is a root-level data collection.
	ObjectTypeEntitySet SecurableObjectType = "EntitySet"

	// ObjectTypePropertyInEntitySet is a property column nested under an
	// entity set (acl key length 2).
	ObjectTypePropertyInEntitySet SecurableObjectType = "PropertyTypeInEntitySet"

	// ObjectTypeOrganization is a tenant container.
	ObjectTypeOrganization SecurableObjectType = "Organization"

	// ObjectTypeApp is an installable application object.
	ObjectTypeApp SecurableObjectType = "App"

	// ObjectTypeUnknown is reported for shapes the registry has no entry for.
	ObjectTypeUnknown SecurableObjectType = "Unknown"
)

// ObjectPermissions pairs a securable object's acl key with the union of
// permissions some principal set holds on it directly.
type ObjectPermissions struct {
	AclKey      AclKey
	Permissions PermissionSet
}
