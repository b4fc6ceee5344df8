package upstream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrNotReady is returned while a model server does not report the model as loaded.
var ErrNotReady = errors.New("model not ready")

type modelStatus struct {
	Ready *bool `json:"ready"`
}

// ModelReady returns nil when GET /v1/models/{name} answers 200 without
// an explicit "ready": false.
func ModelReady(ctx context.Context, u *Upstream, name string) error {
	res, err := u.Get(ctx, "/v1/models/"+name, nil)
	if err != nil {
		return err
	}
	if res.Status != http.StatusOK {
		return fmt.Errorf("%w: %s status %d", ErrNotReady, name, res.Status)
	}
	var st modelStatus
	if err := res.Decode(&st); err == nil && st.Ready != nil && !*st.Ready {
		return fmt.Errorf("%w: %s reports ready=false", ErrNotReady, name)
	}
	return nil
}

// WaitModel retries ModelReady with exponential backoff until ctx expires.
func WaitModel(ctx context.Context, u *Upstream, name string) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = 0

	err := backoff.Retry(func() error {
		err := ModelReady(ctx, u, name)
		if err != nil {
			log.Printf("upstream: model %s not ready yet: %v", name, err)
		}
		return err
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return fmt.Errorf("wait for model %s: %w", name, err)
	}
	log.Printf("upstream: model %s ready at %s", name, u.BaseURL())
	return nil
}
