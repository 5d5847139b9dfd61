package auth

// Principal is an authenticated identity with its resolved capability set,
// as carried by a verified access token.
type Principal struct {
	UserID         string
	Email          string
	Roles          []RoleName
	Permissions    map[string]struct{}
	OrganizationID string
	StoreID        string
}

// PrincipalFromClaims builds a principal from a verified claim-set. Unknown
// role strings are dropped rather than carried as free-form text.
func PrincipalFromClaims(claims *Claims) Principal {
	roles := make([]RoleName, 0, len(claims.Roles))
	for _, r := range claims.Roles {
		if name := RoleName(r); name.Valid() {
			roles = append(roles, name)
		}
	}
	perms := make(map[string]struct{}, len(claims.Permissions))
	for _, p := range claims.Permissions {
		perms[p] = struct{}{}
	}
	return Principal{
		UserID:         claims.Subject,
		Email:          claims.Email,
		Roles:          roles,
		Permissions:    perms,
		OrganizationID: claims.OrganizationID,
		StoreID:        claims.StoreID,
	}
}

// HasRole reports whether the principal holds the role.
func (p Principal) HasRole(name RoleName) bool {
	for _, r := range p.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// HasPermission reports whether the principal holds the capability key.
// super_admin implicitly holds everything.
func (p Principal) HasPermission(key string) bool {
	if p.HasRole(RoleSuperAdmin) {
		return true
	}
	_, ok := p.Permissions[key]
	return ok
}

// Authenticate verifies an access token and returns its principal. Every
// failure collapses into ErrInvalidToken.
func (s *Service) Authenticate(token string) (Principal, error) {
	claims, err := VerifyToken(token, s.cfg.Current().AccessSecret())
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	if claims.TokenType != tokenTypeAccess {
		return Principal{}, ErrInvalidToken
	}
	return PrincipalFromClaims(claims), nil
}
