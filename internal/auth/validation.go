package auth

// isValidEmailFormat checks the local@domain.tld shape: a non-empty local
// part, '@' not at either edge, and a dot inside the domain that is not at
// the domain's edges. Deliberately looser than full RFC 5322 but stricter
// than net/mail, which accepts dotless domains like "a@b".
func isValidEmailFormat(email string) bool {
	if email == "" {
		return false
	}

	atIndex := -1
	for i := 0; i < len(email); i++ {
		if email[i] == '@' {
			atIndex = i
			break
		}
	}
	if atIndex <= 0 || atIndex == len(email)-1 {
		return false
	}

	domain := email[atIndex+1:]
	dotIndex := -1
	for i := 0; i < len(domain); i++ {
		if domain[i] == '.' {
			dotIndex = i
			break
		}
	}
	if dotIndex <= 0 || dotIndex == len(domain)-1 {
		return false
	}

	return true
}

// isValidPasswordStrength requires at least one uppercase letter, at least
// one digit, and a minimum length of 8 characters.
func isValidPasswordStrength(password string) bool {
	if len(password) < 8 {
		return false
	}

	var hasUppercase, hasDigit bool
	for _, c := range password {
		switch {
		case c >= 'A' && c <= 'Z':
			hasUppercase = true
		case c >= '0' && c <= '9':
			hasDigit = true
		}
	}

	return hasUppercase && hasDigit
}
