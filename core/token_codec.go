package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	TokenPayloadFormatLegacy = "legacy_token"
	TokenPayloadFormatJSONV1 = "tenant_token_json"
	TokenPayloadVersionV1    = 1
)

// TokenCodec turns plaintext token material into the payload persisted under
// encryption. The format tag travels with the stored row so decode never has
// to guess: a payload is decoded with the codec its format names, or not at
// all.
type TokenCodec interface {
	Format() string
	Version() int
	Encode(pair TokenPair) ([]byte, error)
	Decode(payload []byte) (TokenPair, error)
}

type JSONTokenCodec struct{}

func (JSONTokenCodec) Format() string {
	return TokenPayloadFormatJSONV1
}

func (JSONTokenCodec) Version() int {
	return TokenPayloadVersionV1
}

type jsonTokenPayload struct {
	AccessToken  string         `json:"access_token,omitempty"`
	RefreshToken string         `json:"refresh_token,omitempty"`
	TokenType    string         `json:"token_type,omitempty"`
	Scopes       []string       `json:"scopes,omitempty"`
	ExpiresAt    *time.Time     `json:"expires_at,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

func (JSONTokenCodec) Encode(pair TokenPair) ([]byte, error) {
	if strings.TrimSpace(pair.AccessToken) == "" {
		return nil, fmt.Errorf("core: token payload requires an access token")
	}
	payload := jsonTokenPayload{
		AccessToken:  strings.TrimSpace(pair.AccessToken),
		RefreshToken: strings.TrimSpace(pair.RefreshToken),
		TokenType:    strings.TrimSpace(pair.TokenType),
		Scopes:       append([]string(nil), pair.Scopes...),
		ExpiresAt:    cloneTimePointer(pair.ExpiresAt),
		Metadata:     copyAnyMap(pair.Metadata),
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("core: encode token payload: %w", err)
	}
	return encoded, nil
}

func (JSONTokenCodec) Decode(payload []byte) (TokenPair, error) {
	if len(payload) == 0 {
		return TokenPair{}, fmt.Errorf("core: token payload is empty")
	}
	decoded := jsonTokenPayload{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return TokenPair{}, fmt.Errorf("core: decode token payload: %w", err)
	}
	return TokenPair{
		AccessToken:  strings.TrimSpace(decoded.AccessToken),
		RefreshToken: strings.TrimSpace(decoded.RefreshToken),
		TokenType:    strings.TrimSpace(decoded.TokenType),
		Scopes:       append([]string(nil), decoded.Scopes...),
		ExpiresAt:    cloneTimePointer(decoded.ExpiresAt),
		Metadata:     copyAnyMap(decoded.Metadata),
	}, nil
}

// LegacyTokenCodec reads rows written before the JSON envelope existed: the
// payload is the bare access token. It is only ever selected explicitly by
// the stored format tag during migration, never probed as a fallback.
type LegacyTokenCodec struct{}

func (LegacyTokenCodec) Format() string {
	return TokenPayloadFormatLegacy
}

func (LegacyTokenCodec) Version() int {
	return TokenPayloadVersionV1
}

func (LegacyTokenCodec) Encode(pair TokenPair) ([]byte, error) {
	token := strings.TrimSpace(pair.AccessToken)
	if token == "" {
		return nil, fmt.Errorf("core: legacy token payload requires an access token")
	}
	return []byte(token), nil
}

func (LegacyTokenCodec) Decode(payload []byte) (TokenPair, error) {
	token := strings.TrimSpace(string(payload))
	if token == "" {
		return TokenPair{}, fmt.Errorf("core: legacy token payload is empty")
	}
	return TokenPair{AccessToken: token}, nil
}

// ResolveTokenCodec picks the codec a stored format tag names.
func ResolveTokenCodec(format string, primary TokenCodec) (TokenCodec, error) {
	format = strings.TrimSpace(format)
	if primary == nil {
		primary = JSONTokenCodec{}
	}
	switch format {
	case "", primary.Format():
		return primary, nil
	case TokenPayloadFormatLegacy:
		return LegacyTokenCodec{}, nil
	case TokenPayloadFormatJSONV1:
		return JSONTokenCodec{}, nil
	}
	return nil, fmt.Errorf("core: unknown token payload format %q", format)
}

func cloneTimePointer(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := value.UTC()
	return &clone
}
