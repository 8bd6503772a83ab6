package middleware

import "github.com/iliyamo/ecowaste-cert/internal/model"

// allows reports whether role holds every capability in caps.  An empty
// caps list admits any authenticated role.
func allows(role model.Role, caps []model.Capability) bool {
	for _, c := range caps {
		if !model.Can(role, c) {
			return false
		}
	}
	return true
}
