/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"wallet-ledger-go/internal/models"
)

func Load() (*models.Config, error) {
	durations := map[string]*time.Duration{}
	read := func(key string, def time.Duration) *time.Duration {
		d := def
		durations[key] = &d
		return &d
	}

	connMaxLifetime := read("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	connMaxIdleTime := read("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	pingTimeout := read("DB_PING_TIMEOUT", 5*time.Second)
	lockTimeout := read("DB_BUSY_TIMEOUT", 5*time.Second)
	cacheTtl := read("SETTINGS_CACHE_TTL", 5*time.Minute)
	pollingInterval := read("DISPATCH_POLL_INTERVAL", 2*time.Second)
	cleanupInterval := read("DISPATCH_CLEANUP_INTERVAL", 15*time.Minute)
	retention := read("DISPATCH_RETENTION", 7*24*time.Hour)

	for key, dst := range durations {
		d, err := getEnvDuration(key, *dst)
		if err != nil {
			return nil, err
		}
		*dst = d
	}

	timezone := getEnvString("LEDGER_TIMEZONE", "Asia/Dubai")
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, fmt.Errorf("invalid LEDGER_TIMEZONE %q: %w", timezone, err)
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Driver:           getEnvString("DATABASE_DRIVER", "sqlite3"),
			Path:             getEnvString("DATABASE_PATH", "ledger.db"),
			Url:              getEnvString("DATABASE_URL", ""),
			MaxOpenConns:     getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  *connMaxLifetime,
			ConnMaxIdleTime:  *connMaxIdleTime,
			PingTimeout:      *pingTimeout,
			LockTimeout:      *lockTimeout,
			CreateDummyUsers: getEnvBool("CREATE_DUMMY_USERS", false),
		},
		Settings: models.SettingsConfig{
			SeedFile: getEnvString("SETTINGS_FILE", "settings.yaml"),
			Timezone: timezone,
		},
		Cache: models.CacheConfig{
			RedisAddr:     getEnvString("REDIS_ADDR", ""),
			RedisPassword: getEnvString("REDIS_PASSWORD", ""),
			RedisDb:       getEnvInt("REDIS_DB", 0),
			Ttl:           *cacheTtl,
		},
		Dispatcher: models.DispatcherConfig{
			PollingInterval: *pollingInterval,
			CleanupInterval: *cleanupInterval,
			Retention:       *retention,
			BatchSize:       getEnvInt("DISPATCH_BATCH_SIZE", 100),
			MaxAttempts:     getEnvInt("DISPATCH_MAX_ATTEMPTS", 10),
		},
		Broker: models.BrokerConfig{
			Url:      getEnvString("AMQP_URL", ""),
			Exchange: getEnvString("AMQP_EXCHANGE", "ledger_events"),
		},
		Formance: models.FormanceConfig{
			StackURL:     getEnvString("FORMANCE_STACK_URL", ""),
			ClientID:     getEnvString("FORMANCE_CLIENT_ID", ""),
			ClientSecret: getEnvString("FORMANCE_CLIENT_SECRET", ""),
			LedgerName:   getEnvString("FORMANCE_LEDGER", "wallet-ledger"),
		},
		Metrics: models.MetricsConfig{
			Addr: getEnvString("METRICS_ADDR", ":9102"),
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
