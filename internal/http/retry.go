package http

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/folio-media/folio/internal/constants"
)

// Class groups errors by how a caller should react to them.
type Class int

const (
	ClassNone Class = iota
	// ClassCredential covers 401/403, expired STS tokens and rejected SAS signatures.
	ClassCredential
	// ClassNetwork covers resets, refused connections and timeouts.
	ClassNetwork
	// ClassTransient covers throttling and 5xx responses.
	ClassTransient
	// ClassPermanent is everything else, including cancellation.
	ClassPermanent
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassCredential:
		return "credential"
	case ClassNetwork:
		return "network"
	case ClassTransient:
		return "transient"
	case ClassPermanent:
		return "permanent"
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// Retryable reports whether an operation failing with c is worth repeating.
func (c Class) Retryable() bool {
	return c == ClassCredential || c == ClassNetwork || c == ClassTransient
}

// StatusCoder is implemented by errors that carry an HTTP status code.
type StatusCoder interface {
	HTTPStatus() int
}

// Message fragments used when an error carries no status code. Checked in
// order; the first table with a match wins.
var classMarkers = []struct {
	class   Class
	markers []string
}{
	{ClassCredential, []string{"expiredtoken", "invalid token", "unauthorized", "authenticationfailed", "invalid sas", "signature not valid", "401", "403"}},
	{ClassNetwork, []string{"connection reset", "connection refused", "broken pipe", "i/o timeout", "tls handshake timeout", "timeout", "eof"}},
	{ClassTransient, []string{"slowdown", "throttl", "serverbusy", "internalerror", "serviceunavailable", "service unavailable", "429", "500", "502", "503", "504"}},
}

// Classify sorts err into a Class, preferring a status code when err has one.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassPermanent
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		return classifyStatus(sc.HTTPStatus())
	}

	msg := strings.ToLower(err.Error())
	for _, entry := range classMarkers {
		for _, m := range entry.markers {
			if strings.Contains(msg, m) {
				return entry.class
			}
		}
	}
	return ClassPermanent
}

func classifyStatus(code int) Class {
	switch {
	case code >= 200 && code < 300:
		return ClassNone
	case code == 401 || code == 403:
		return ClassCredential
	case code == 408 || code == 429 || code >= 500:
		return ClassTransient
	}
	return ClassPermanent
}

// Policy controls how Do repeats a failing operation.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// OnRetry is called before each pause, with the attempt that just failed.
	OnRetry func(attempt int, err error, class Class)
}

// DefaultPolicy is the policy used for thumbnail probes.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:  constants.MaxRetries,
		BaseDelay: constants.RetryInitialDelay,
		MaxDelay:  constants.RetryMaxDelay,
	}
}

// Backoff returns the pause after the given zero-based attempt:
// a random duration in [0, min(MaxDelay, BaseDelay<<attempt)).
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt <= 0 || p.BaseDelay <= 0 {
		return 0
	}
	ceiling := p.MaxDelay
	if attempt < 30 {
		if d := p.BaseDelay << uint(attempt); d > 0 && d < ceiling {
			ceiling = d
		}
	}
	if ceiling <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(ceiling)))
}

// Do runs op until it succeeds, fails permanently, or p.Attempts is used up.
// Credential failures get a single BaseDelay pause so a refreshed token can
// be picked up by the source. Do gives up early when ctx ends or when its
// deadline falls before the next pause would finish.
func Do(ctx context.Context, p Policy, op func() error) error {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}

	var err error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err = op(); err == nil {
			return nil
		}

		class := Classify(err)
		if !class.Retryable() {
			return err
		}
		if attempt == p.Attempts-1 {
			break
		}

		pause := p.Backoff(attempt)
		if class == ClassCredential {
			pause = p.BaseDelay
		}
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < pause {
			return fmt.Errorf("no time left to retry after attempt %d: %w", attempt+1, err)
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err, class)
		}
		if err := sleep(ctx, pause); err != nil {
			return err
		}
	}
	return fmt.Errorf("gave up after %d attempts: %w", p.Attempts, err)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
