package factory

import (
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monx-observability/fleet-telemetry/internal/config"
)

func TestCreateKafkaConfig(t *testing.T) {
	type testCase struct {
		name      string
		creds     config.KafkaCreds
		valid     bool
		sasl      bool
		mechanism sarama.SASLMechanism
	}

	cases := []testCase{
		{
			name:  "no creds",
			valid: true,
		},
		{
			name:      "default mechanism",
			creds:     config.KafkaCreds{User: "u", Password: "p"},
			valid:     true,
			sasl:      true,
			mechanism: sarama.SASLTypeSCRAMSHA512,
		},
		{
			name:      "sha256",
			creds:     config.KafkaCreds{User: "u", Password: "p", Mechanism: "scram-sha-256"},
			valid:     true,
			sasl:      true,
			mechanism: sarama.SASLTypeSCRAMSHA256,
		},
		{
			name:  "plain is refused",
			creds: config.KafkaCreds{User: "u", Password: "p", Mechanism: "PLAIN"},
		},
	}

	for i := range cases {
		c := cases[i]

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			conf, err := createKafkaConfig(config.Kafka{
				Broker:   config.KafkaBroker{Version: "3.6.0", Creds: c.creds},
				Consumer: config.KafkaConsumer{Group: "fleet-telemetry"},
			})
			assert.Equal(t, c.valid, err == nil, err)

			if !c.valid {
				return
			}

			assert.Equal(t, c.sasl, conf.Net.SASL.Enable)

			if c.sasl {
				assert.Equal(t, c.mechanism, conf.Net.SASL.Mechanism)
				require.NotNil(t, conf.Net.SASL.SCRAMClientGeneratorFunc)
				assert.NotNil(t, conf.Net.SASL.SCRAMClientGeneratorFunc())
			}

			assert.NoError(t, conf.Validate())
		})
	}
}

func TestSCRAMClientBegin(t *testing.T) {
	client := &XDGSCRAMClient{HashGeneratorFcn: SHA512}

	require.NoError(t, client.Begin("user", "password", ""))

	first, err := client.Step("")
	require.NoError(t, err)
	assert.Contains(t, first, "n=user")
	assert.False(t, client.Done())
}
