package workspace

import (
	"fmt"
	"strings"

	"github.com/rescale/rescale-staging/internal/secret"
	"github.com/rescale/rescale-staging/internal/staging"
)

// Backends with a known credential shape.
const (
	BackendSnowflake = "snowflake"
	BackendBigquery  = "bigquery"
)

// Credentials holds backend-specific connection settings. Passwords, private
// keys and service-account documents are wrapped so they never print.
type Credentials = secret.Map

// ParseCredentialsData extracts the credentials from the "connection" object of
// a workspace response. The shape depends on the backend:
//
//	bigquery:  schema, region, credentials
//	snowflake: host, warehouse, database, schema, user, password?, privateKey?, account
func ParseCredentialsData(connection map[string]interface{}) (Credentials, error) {
	backend, err := requiredString(connection, "backend")
	if err != nil {
		return nil, err
	}

	switch backend {
	case BackendBigquery:
		return parseBigqueryCredentials(connection)
	case BackendSnowflake:
		return parseSnowflakeCredentials(connection)
	default:
		return nil, fmt.Errorf("%w: unsupported backend %q", staging.ErrConfiguration, backend)
	}
}

func parseBigqueryCredentials(connection map[string]interface{}) (Credentials, error) {
	creds := Credentials{}
	for _, key := range []string{"schema", "region"} {
		v, err := requiredString(connection, key)
		if err != nil {
			return nil, err
		}
		creds[key] = v
	}

	switch blob := connection["credentials"].(type) {
	case map[string]interface{}:
		creds["credentials"] = secret.NewBlob(blob)
	case secret.Blob:
		creds["credentials"] = blob
	case string:
		creds["credentials"] = secret.String(blob)
	case secret.String:
		creds["credentials"] = blob
	case nil:
		return nil, fmt.Errorf("missing %q in bigquery connection", "credentials")
	default:
		return nil, fmt.Errorf("field %q of bigquery connection has unexpected type %T", "credentials", blob)
	}
	return creds, nil
}

func parseSnowflakeCredentials(connection map[string]interface{}) (Credentials, error) {
	creds := Credentials{}
	for _, key := range []string{"host", "warehouse", "database", "schema", "user"} {
		v, err := requiredString(connection, key)
		if err != nil {
			return nil, err
		}
		creds[key] = v
	}

	// Either may be absent; a key-pair workspace has no password and a
	// password workspace has no private key.
	for _, key := range []string{"password", "privateKey"} {
		raw, ok := connection[key]
		if !ok {
			continue
		}
		v, present, err := optionalString(raw, key)
		if err != nil {
			return nil, err
		}
		if present {
			creds[key] = secret.String(v)
		} else {
			creds[key] = nil
		}
	}

	host, _ := creds.Get("host")
	creds["account"] = SnowflakeAccount(host)
	return creds, nil
}

// SnowflakeAccount derives the account identifier from a Snowflake host:
//
//	abc-123.snowflakecomputing.com         -> abc-123
//	xy-east1.global.snowflakecomputing.com -> xy
//	localhost                              -> localhost
func SnowflakeAccount(host string) string {
	parts := strings.Split(host, ".")
	if len(parts) < 2 {
		return host
	}
	account := parts[0]
	if parts[1] == "global" {
		if i := strings.LastIndex(account, "-"); i > 0 {
			account = account[:i]
		}
	}
	return account
}

func requiredString(m map[string]interface{}, key string) (string, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return "", fmt.Errorf("missing %q in connection", key)
	}
	v, _, err := optionalString(raw, key)
	return v, err
}

func optionalString(raw interface{}, key string) (string, bool, error) {
	switch v := raw.(type) {
	case nil:
		return "", false, nil
	case string:
		return v, true, nil
	case secret.String:
		return v.Reveal(), true, nil
	default:
		return "", false, fmt.Errorf("field %q has unexpected type %T", key, raw)
	}
}
