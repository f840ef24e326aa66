package main

import (
	"errors"
	"io"
	"os"

	"github.com/fentz26/planforge/internal/auth"
	"github.com/fentz26/planforge/internal/client"
	"github.com/fentz26/planforge/internal/config"
	"github.com/fentz26/planforge/internal/controller"
	"github.com/fentz26/planforge/internal/environment"
	"github.com/fentz26/planforge/internal/genai"
	"github.com/fentz26/planforge/internal/logger"
	"github.com/fentz26/planforge/internal/models"
	"github.com/sirupsen/logrus"
)

var errNotSignedIn = errors.New("not signed in (run: planforge auth login)")

func newLogger(service string, logCfg config.LogConfig) (*logrus.Entry, io.Closer, error) {
	return logger.New(service, logCfg, os.Stderr)
}

func newAuthManager() (*auth.Manager, error) {
	if cfg.Auth.Dir != "" {
		return auth.NewManagerAt(cfg.Auth.Dir, cfg.Auth.URL)
	}
	return auth.NewManager(cfg.Auth.URL)
}

// requireUser returns the signed-in user or errNotSignedIn.
func requireUser() (*models.User, error) {
	mgr, err := newAuthManager()
	if err != nil {
		return nil, err
	}
	u := mgr.CurrentUser()
	if u == nil {
		return nil, errNotSignedIn
	}
	return u, nil
}

func newClient() *client.Client {
	return client.New(cfg.Backend, cfg.ClientTimeout)
}

func newGenerator() *genai.Gemini {
	return genai.NewGemini(cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.BaseURL, cfg.Gemini.Timeout)
}

// newRunner wires the effect runner. A nil api leaves persistence unwired.
func newRunner(gen genai.Generator, api *client.Client, env environment.Environment, log *logrus.Entry) *controller.Runner {
	r := &controller.Runner{
		Generator: gen,
		Env:       env,
		Log:       log,
	}
	if api != nil {
		r.Projects = api
		r.Activity = api
		r.Invitations = api
	}
	return r
}
