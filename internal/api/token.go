package api

import (
	"context"
	nethttp "net/http"
	"slices"
)

// Token is the verified Storage API token and the project that owns it.
type Token struct {
	ID          string       `json:"id"`
	Description string       `json:"description"`
	Owner       TokenProject `json:"owner"`
}

// TokenProject describes the project entitlements.
type TokenProject struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	HasSnowflake bool     `json:"hasSnowflake"`
	HasBigquery  bool     `json:"hasBigquery"`
	HasRedshift  bool     `json:"hasRedshift"`
	HasSynapse   bool     `json:"hasSynapse"`
	HasExasol    bool     `json:"hasExasol"`
	HasTeradata  bool     `json:"hasTeradata"`
	Features     []string `json:"features"`
}

// VerifyToken fetches the token details and project entitlements.
func (c *Client) VerifyToken(ctx context.Context) (*Token, error) {
	var token Token
	if err := c.do(ctx, nethttp.MethodGet, "/v2/storage/tokens/verify", nil, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// HasSnowflake reports whether the project can use Snowflake workspaces.
func (t *Token) HasSnowflake() bool { return t.Owner.HasSnowflake }

// HasBigquery reports whether the project can use BigQuery workspaces.
func (t *Token) HasBigquery() bool { return t.Owner.HasBigquery }

// HasRedshift reports whether the project can use Redshift workspaces.
func (t *Token) HasRedshift() bool { return t.Owner.HasRedshift }

// HasSynapse reports whether the project can use Synapse workspaces.
func (t *Token) HasSynapse() bool { return t.Owner.HasSynapse }

// HasExasol reports whether the project can use Exasol workspaces.
func (t *Token) HasExasol() bool { return t.Owner.HasExasol }

// HasTeradata reports whether the project can use Teradata workspaces.
func (t *Token) HasTeradata() bool { return t.Owner.HasTeradata }

// Features returns the project feature flags.
func (t *Token) Features() []string { return slices.Clone(t.Owner.Features) }
