package adapters

import (
	"time"

	"github.com/boletohub/backend/internal/infrastructure/config"
)

func configForTest() config.ProviderConfig {
	return config.ProviderConfig{
		RequestTimeout:  5 * time.Second,
		MaxPages:        10,
		SyncBatchSize:   20,
		AmountTolerance: 0.01,
		LockTTL:         5 * time.Minute,
	}
}
