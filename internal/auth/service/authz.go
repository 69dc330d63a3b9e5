package service

// RequireAnyRole checks the session's role snapshot against the allowed set.
// Pure set intersection; an empty overlap rejects the request.
func RequireAnyRole(sessionRoles, allowed []string) error {
	for _, have := range sessionRoles {
		for _, want := range allowed {
			if have == want {
				return nil
			}
		}
	}
	return ErrUnauthorized
}
