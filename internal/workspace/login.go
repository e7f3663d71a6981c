package workspace

import (
	"fmt"
	"strings"

	"github.com/rescale/rescale-staging/internal/staging"
)

// LoginType selects how clients authenticate against a workspace.
type LoginType string

const (
	LoginTypeDefault                 LoginType = "default"
	LoginTypeSnowflakeLegacyPassword LoginType = "snowflake-legacy-service-password"
	LoginTypeSnowflakePersonSSO      LoginType = "snowflake-person-sso"
	LoginTypeSnowflakePersonKeyPair  LoginType = "snowflake-person-keypair"
	LoginTypeSnowflakeServiceKeyPair LoginType = "snowflake-service-keypair"
)

var loginTypes = []LoginType{
	LoginTypeDefault,
	LoginTypeSnowflakeLegacyPassword,
	LoginTypeSnowflakePersonSSO,
	LoginTypeSnowflakePersonKeyPair,
	LoginTypeSnowflakeServiceKeyPair,
}

// ParseLoginType parses a login type name. The empty string is LoginTypeDefault.
func ParseLoginType(s string) (LoginType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return LoginTypeDefault, nil
	}
	for _, lt := range loginTypes {
		if string(lt) == s {
			return lt, nil
		}
	}
	return "", fmt.Errorf("%w: unknown login type %q", staging.ErrConfiguration, s)
}

// IsKeyPair reports whether logins use an RSA key pair. For these the client
// generates the pair and only the public key is sent to the API.
func (t LoginType) IsKeyPair() bool {
	return t == LoginTypeSnowflakePersonKeyPair || t == LoginTypeSnowflakeServiceKeyPair
}

// IsSnowflake reports whether the login type only applies to Snowflake.
func (t LoginType) IsSnowflake() bool {
	return strings.HasPrefix(string(t), "snowflake-")
}

// DefaultLoginType is used when workspace creation does not ask for a login type.
func DefaultLoginType(backend string) LoginType {
	if backend == BackendSnowflake {
		return LoginTypeSnowflakeServiceKeyPair
	}
	return LoginTypeDefault
}
