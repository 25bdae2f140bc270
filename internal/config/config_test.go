package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAPIConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *APIConfig)
	}{
		{
			name: "valid config file",
			configFile: `
debug: true
sentry_dsn: "https://sentry.example.com"
server:
  host: 127.0.0.1
  port: 9090
  read_timeout: 15
  write_timeout: 15
  idle_timeout: 60
database:
  host: localhost
  port: 5432
  user: testuser
  password: testpass
  dbname: testdb
  sslmode: require
nats:
  url: "nats://localhost:4222"
  stream_name: "TEST_STREAM"
  max_reconnects: 5
  reconnect_wait: "5s"
  connection_name: "test-connection"
auth:
  jwt_public_key: "test-key"
  api_keys:
    - key-one
    - key-two
contract:
  registry_address: "0x00000000000000000000000000000000000000Fe"
  relay_address: "0x4444444444444444444444444444444444444444"
  deployer: "0x1111111111111111111111111111111111111111"
  initial_donation: "2000"
  initial_price: "900"
`,
			expectError: false,
			validate: func(t *testing.T, cfg *APIConfig) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "https://sentry.example.com", cfg.SentryDSN)
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 15, cfg.Server.ReadTimeout)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "testuser", cfg.Database.User)
				assert.Equal(t, "require", cfg.Database.SSLMode)
				assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
				assert.Equal(t, "TEST_STREAM", cfg.NATS.StreamName)
				assert.Equal(t, "test-key", cfg.Auth.JWTPublicKey)
				assert.Equal(t, []string{"key-one", "key-two"}, cfg.Auth.APIKeys)
				assert.Equal(t, "0x00000000000000000000000000000000000000Fe", cfg.Contract.RegistryAddress)
				assert.Equal(t, "0x4444444444444444444444444444444444444444", cfg.Contract.RelayAddress)
				assert.Equal(t, "2000", cfg.Contract.InitialDonation)
				assert.Equal(t, "900", cfg.Contract.InitialPrice)
			},
		},
		{
			name: "config with defaults",
			configFile: `
database:
  host: localhost
  user: testuser
  password: testpass
  dbname: testdb
nats:
  url: "nats://localhost:4222"
contract:
  registry_address: "0x00000000000000000000000000000000000000Fe"
  deployer: "0x1111111111111111111111111111111111111111"
`,
			expectError: false,
			validate: func(t *testing.T, cfg *APIConfig) {
				// Check defaults
				assert.False(t, cfg.Debug)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, 10, cfg.NATS.MaxReconnects)
				assert.Equal(t, "2s", cfg.NATS.ReconnectWait.String())
				assert.Equal(t, "REGISTRY_EVENTS", cfg.NATS.StreamName)
				assert.Equal(t, "1000000000000000000", cfg.Contract.InitialDonation)
				assert.Equal(t, "500000000000000000", cfg.Contract.InitialPrice)
				assert.Empty(t, cfg.Contract.RelayAddress)
			},
		},
		{
			name:        "missing config file",
			configFile:  "",
			expectError: false,
			validate:    nil,
		},
		{
			name: "invalid yaml",
			configFile: `
				server:
				  port: invalid
			`,
			expectError: true,
			validate:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			var configFile string

			if tt.configFile != "" {
				configFile = filepath.Join(tmpDir, "config.yaml")
				err := os.WriteFile(configFile, []byte(tt.configFile), 0600)
				require.NoError(t, err)
			} else {
				configFile = filepath.Join(tmpDir, "nonexistent.yaml")
			}

			cfg, err := LoadAPIConfig(configFile, "")

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
			} else {
				if tt.validate != nil {
					require.NoError(t, err)
					require.NotNil(t, cfg)
					tt.validate(t, cfg)
				}
			}
		})
	}
}

func TestLoadEventBridgeConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *EventBridgeConfig)
	}{
		{
			name: "valid config file",
			configFile: `
debug: true
database:
  host: localhost
  user: testuser
  password: testpass
  dbname: testdb
nats:
  url: "nats://localhost:4222"
  stream_name: "TEST_STREAM"
  consumer_name: "test-bridge"
  ack_wait: "45s"
  max_deliver: 5
worker:
  pool_size: 4
  queue_size: 256
webhook:
  delivery_timeout: "10s"
  retry_initial_interval: "1s"
  retry_max_interval: "20s"
`,
			expectError: false,
			validate: func(t *testing.T, cfg *EventBridgeConfig) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
				assert.Equal(t, "TEST_STREAM", cfg.NATS.StreamName)
				assert.Equal(t, "test-bridge", cfg.NATS.ConsumerName)
				assert.Equal(t, "45s", cfg.NATS.AckWait.String())
				assert.Equal(t, 5, cfg.NATS.MaxDeliver)
				assert.Equal(t, 4, cfg.Worker.WorkerPoolSize)
				assert.Equal(t, 256, cfg.Worker.WorkerQueueSize)
				assert.Equal(t, "10s", cfg.Webhook.DeliveryTimeout.String())
				assert.Equal(t, "1s", cfg.Webhook.RetryInitialInterval.String())
				assert.Equal(t, "20s", cfg.Webhook.RetryMaxInterval.String())
			},
		},
		{
			name: "config with defaults",
			configFile: `
database:
  host: localhost
  user: testuser
  password: testpass
  dbname: testdb
nats:
  url: "nats://localhost:4222"
`,
			expectError: false,
			validate: func(t *testing.T, cfg *EventBridgeConfig) {
				assert.Equal(t, "REGISTRY_EVENTS", cfg.NATS.StreamName)
				assert.Equal(t, "event-bridge", cfg.NATS.ConsumerName)
				assert.Equal(t, "30s", cfg.NATS.AckWait.String())
				assert.Equal(t, 3, cfg.NATS.MaxDeliver)
				assert.Equal(t, 10, cfg.Worker.WorkerPoolSize)
				assert.Equal(t, 1000, cfg.Worker.WorkerQueueSize)
				assert.Equal(t, "30s", cfg.Webhook.DeliveryTimeout.String())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configFile := filepath.Join(tmpDir, "config.yaml")
			err := os.WriteFile(configFile, []byte(tt.configFile), 0600)
			require.NoError(t, err)

			cfg, err := LoadEventBridgeConfig(configFile, "")

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
			} else {
				if tt.validate != nil {
					require.NoError(t, err)
					require.NotNil(t, cfg)
					tt.validate(t, cfg)
				}
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := &DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
		SSLMode:  "require",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=require"
	assert.Equal(t, expected, cfg.DSN())
}

func TestConfigWithEnvironmentVariables(t *testing.T) {
	tmpDir := t.TempDir()

	envDir := filepath.Join(tmpDir, "env")
	err := os.MkdirAll(envDir, 0750)
	require.NoError(t, err)

	// The .env file is loaded via godotenv.Overload, which sets actual
	// environment variables; viper's AutomaticEnv then picks them up with
	// the BIORBIT_ prefix
	envFile := filepath.Join(envDir, ".env")
	envContent := `BIORBIT_DEBUG=true
BIORBIT_DATABASE_HOST=env-host
BIORBIT_DATABASE_PORT=3306
BIORBIT_DATABASE_USER=env-user
BIORBIT_DATABASE_PASSWORD=env-pass
BIORBIT_DATABASE_DBNAME=env-db
BIORBIT_CONTRACT_DEPLOYER=0x1111111111111111111111111111111111111111
`
	err = os.WriteFile(envFile, []byte(envContent), 0600)
	require.NoError(t, err)

	// Config file values should lose to the environment
	configPath := filepath.Join(tmpDir, "config.yaml")
	configFile := `
debug: false
database:
  host: file-host
  port: 5432
  user: file-user
  password: file-pass
  dbname: file-db
`
	err = os.WriteFile(configPath, []byte(configFile), 0600)
	require.NoError(t, err)

	cfg, err := LoadAPIConfig(configPath, envDir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "env-user", cfg.Database.User)
	assert.Equal(t, "env-pass", cfg.Database.Password)
	assert.Equal(t, "env-db", cfg.Database.DBName)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", cfg.Contract.Deployer)
}
