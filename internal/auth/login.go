package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// LoginFlow runs the one-time authorization-code flow that yields the refresh
// token the pipeline runs with.
type LoginFlow struct {
	oauth  *oauth2.Config
	logger *zap.Logger
}

// NewLoginFlow creates a LoginFlow for oauthCfg. oauthCfg.RedirectURL must point
// at the listener later passed to Run.
func NewLoginFlow(oauthCfg *oauth2.Config, logger *zap.Logger) *LoginFlow {
	return &LoginFlow{oauth: oauthCfg, logger: logger}
}

type callbackResult struct {
	code string
	err  error
}

// Run serves the OAuth callback on ln, reports the URL the user has to open via
// showURL, and exchanges the returned code for a token.
func (f *LoginFlow) Run(ctx context.Context, ln net.Listener, showURL func(string)) (*oauth2.Token, error) {
	state, err := randomState()
	if err != nil {
		return nil, err
	}

	results := make(chan callbackResult, 1)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/*path", func(c *gin.Context) {
		res := callbackResult{code: c.Query("code")}
		switch {
		case c.Query("error") != "":
			res.err = fmt.Errorf("authorization denied: %s: %s", c.Query("error"), c.Query("error_description"))
		case c.Query("state") != state:
			res.err = errors.New("authorization callback state mismatch")
		case res.code == "":
			res.err = errors.New("authorization callback without code")
		}

		if res.err != nil {
			c.String(http.StatusBadRequest, "Login failed: %v", res.err)
		} else {
			c.String(http.StatusOK, "Login complete. You can close this window.")
		}
		select {
		case results <- res:
		default:
		}
	})

	srv := &http.Server{Handler: r}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.logger.Error("login callback server failed", zap.Error(err))
		}
	}()
	defer func() { _ = srv.Close() }()

	showURL(f.oauth.AuthCodeURL(state))

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-results:
		if res.err != nil {
			return nil, res.err
		}
		tok, err := f.oauth.Exchange(ctx, res.code)
		if err != nil {
			return nil, fmt.Errorf("exchanging authorization code: %w", err)
		}
		if tok.RefreshToken == "" {
			return nil, errors.New("token response carried no refresh token; is offline_access granted?")
		}
		return tok, nil
	}
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
