package domain

// AccessCheck is one entry of a batched authorization probe: an acl key plus
// the permissions the caller wants verified on it.
type AccessCheck struct {
	AclKey      AclKey        `json:"aclKey"`
	Permissions PermissionSet `json:"permissions"`
}

// Validate checks the key and the requested set.
func (c AccessCheck) Validate() error {
	if err := c.AclKey.Validate(); err != nil {
		return err
	}
	if c.Permissions.IsEmpty() {
		return ErrEmptyPermissions
	}
	return c.Permissions.Validate()
}

// Authorization is the answer to one access check: which of the requested
// permissions the caller's principal closure actually holds on the key.
// Unknown keys produce an Authorization with an empty Granted set so callers
// cannot distinguish missing objects from missing grants.
type Authorization struct {
	AclKey    AclKey        `json:"aclKey"`
	Requested PermissionSet `json:"requested"`
	Granted   PermissionSet `json:"granted"`
}

// IsFullyGranted reports whether every requested permission was granted.
func (a Authorization) IsFullyGranted() bool {
	return a.Granted.Contains(a.Requested)
}

// AceExplanation describes why one ace is effective: the principals that
// inherit it and the membership chains the grant flows through. Paths start at
// the directly granted principal and walk down the membership graph.
type AceExplanation struct {
	Ace   Ace             `json:"ace"`
	Paths []PrincipalPath `json:"paths"`
}

// AclUpdateResult reports the outcome of one key's mutation inside a batched
// acl update. Batches are best-effort: one key failing does not roll back the
// others.
type AclUpdateResult struct {
	AclKey AclKey `json:"aclKey"`
	Err    error  `json:"-"`
}

// Succeeded reports whether the key's mutation committed.
func (r AclUpdateResult) Succeeded() bool {
	return r.Err == nil
}
