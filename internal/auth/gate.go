package auth

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
)

// AuthorizerRequest is the input the host's routing layer hands the gate
// before a request may reach the MCP adapter.
type AuthorizerRequest struct {
	AuthorizationToken string `json:"authorizationToken"`
	MethodArn          string `json:"methodArn"`
}

// PolicyStatement is a single IAM policy statement.
type PolicyStatement struct {
	Action   string `json:"Action"`
	Effect   string `json:"Effect"`
	Resource string `json:"Resource"`
}

// PolicyDocument is the IAM policy document attached to an Allow decision.
type PolicyDocument struct {
	Version   string            `json:"Version"`
	Statement []PolicyStatement `json:"Statement"`
}

// AuthorizerResponse is the Allow decision returned on successful
// verification.
type AuthorizerResponse struct {
	PrincipalID    string            `json:"principalId"`
	PolicyDocument PolicyDocument    `json:"policyDocument"`
	Context        map[string]string `json:"context"`
}

const policyVersion = "2012-10-17"

// Gate authenticates bearer tokens ahead of the MCP adapter. On any
// verification failure the caller sees only ErrUnauthorized; the specific
// reason is logged server-side.
type Gate struct {
	verifier       TokenVerifier
	requiredScopes []string
	expectedIssuer string
	logger         *slog.Logger
}

// NewGate creates a Gate enforcing the given scopes and issuer.
func NewGate(verifier TokenVerifier, requiredScopes []string, expectedIssuer string, logger *slog.Logger) *Gate {
	return &Gate{
		verifier:       verifier,
		requiredScopes: requiredScopes,
		expectedIssuer: expectedIssuer,
		logger:         logger.With("component", "authorizer_gate"),
	}
}

// Authorize verifies the token and produces an Allow policy scoped to the
// requested method ARN.
func (g *Gate) Authorize(ctx context.Context, req AuthorizerRequest) (*AuthorizerResponse, error) {
	claims, err := g.verifier.Verify(ctx, req.AuthorizationToken, g.requiredScopes, g.expectedIssuer)
	if err != nil {
		log := g.logger.With(slog.String("method_arn", req.MethodArn))
		if ae, ok := AsAuthError(err); ok {
			log.Warn("Authorization failed", slog.String("reason", string(ae.Kind)), slog.Any("error", err))
		} else {
			log.Warn("Authorization failed", slog.Any("error", err))
		}
		return nil, ErrUnauthorized
	}

	g.logger.Info("Authorization successful", slog.String("client_id", claims.ClientID))
	return &AuthorizerResponse{
		PrincipalID: claims.ClientID,
		PolicyDocument: PolicyDocument{
			Version: policyVersion,
			Statement: []PolicyStatement{{
				Action:   "execute-api:Invoke",
				Effect:   "Allow",
				Resource: req.MethodArn,
			}},
		},
		Context: map[string]string{
			"clientId":  claims.ClientID,
			"scope":     strings.Join(claims.Scopes, " "),
			"issuer":    claims.Issuer,
			"expiresAt": strconv.FormatInt(claims.ExpiresAt.Unix(), 10),
		},
	}, nil
}
