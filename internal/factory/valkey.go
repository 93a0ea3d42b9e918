package factory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/monx-observability/fleet-telemetry/internal/common"
	"github.com/monx-observability/fleet-telemetry/internal/config"
)

const valkeyPingTimeout = 5 * time.Second

// CreateValkeyClient connects to the insight store. The url may list several comma
// separated addresses for a cluster.
func CreateValkeyClient(ctx context.Context, conf config.Valkey) (valkey.Client, common.CloseFunc, error) {
	addresses := splitAddresses(conf.URL)
	if len(addresses) == 0 {
		return nil, nil, fmt.Errorf("no valkey address configured")
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: addresses,
		Password:    conf.Creds.Password,
		// Insights are already cached in process.
		DisableCache: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create valkey client for %v: %w", addresses, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, valkeyPingTimeout)
	defer cancel()

	err = client.Do(pingCtx, client.B().Ping().Build()).Error()
	if err != nil {
		client.Close()

		return nil, nil, fmt.Errorf("failed to ping valkey %v: %w", addresses, err)
	}

	closeFunc := func(context.Context) error {
		client.Close()

		return nil
	}

	return client, closeFunc, nil
}

func splitAddresses(url string) []string {
	var ret []string

	for _, address := range strings.Split(url, ",") {
		address = strings.TrimSpace(address)
		if address != "" {
			ret = append(ret, address)
		}
	}

	return ret
}
