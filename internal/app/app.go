package app

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/mselser95/dutch-filler/internal/notify"
	"github.com/mselser95/dutch-filler/internal/scheduler"
	"github.com/mselser95/dutch-filler/internal/storage"
	"github.com/mselser95/dutch-filler/pkg/cache"
	"github.com/mselser95/dutch-filler/pkg/config"
	"github.com/mselser95/dutch-filler/pkg/healthprobe"
	"github.com/mselser95/dutch-filler/pkg/httpserver"
	"github.com/mselser95/dutch-filler/pkg/wallet"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	ethClient     *ethclient.Client
	tokenCache    cache.Cache
	agent         *scheduler.Agent
	tracker       *wallet.Tracker // nil without a filler address
	notifier      *notify.Notifier
	journal       storage.Journal
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}
