package awssdk

import (
	"context"

	"github.com/gocloudkit/awssdk-core/internal/awserr"
)

// Shutdown releases the client's owned resources exactly once (spec §4.1
// "Shutdown contract"): it shuts down the credential provider if the
// client created the default chain, and always shuts down observability.
// A second call returns ClientError{Kind: already_shutdown}.
func (c *Client) Shutdown() error {
	if !c.shutdown.CompareAndSwap(false, true) {
		return awserr.NewAlreadyShutdown()
	}

	if c.ownCredentials {
		// Errors from credential provider shutdown are ignored per spec
		// §4.1: "shuts down the credential provider (ignoring errors)".
		_ = c.credentials.Shutdown(context.Background())
	}
	if c.obs != nil {
		if err := c.obs.Shutdown(context.Background()); err != nil {
			return err
		}
	}
	return nil
}
