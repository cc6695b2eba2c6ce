package handlers

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/akibsystems/showgeki2-sub002/internal/admission"
	"github.com/akibsystems/showgeki2-sub002/internal/pkg/logger"
	"github.com/akibsystems/showgeki2-sub002/internal/ports"
	"github.com/akibsystems/showgeki2-sub002/internal/worker"
)

type Deps struct {
	Store     ports.JobStore
	Processor worker.JobRunner
	Gate      *admission.Gate

	// Standalone mode fields: the webhook only acknowledges and nudges
	// the poller through redis.
	Standalone bool
	RDB        *redis.Client
	QueueName  string

	// Pool and SP back the deep health check.
	Pool *pgxpool.Pool
	SP   ports.StorageProvider

	Log *logger.Logger
}

type Handler struct {
	store      ports.JobStore
	processor  worker.JobRunner
	gate       *admission.Gate
	standalone bool
	rdb        *redis.Client
	queueName  string
	pool       *pgxpool.Pool
	sp         ports.StorageProvider
	log        *logger.Logger
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Handler{
		store:      d.Store,
		processor:  d.Processor,
		gate:       d.Gate,
		standalone: d.Standalone,
		rdb:        d.RDB,
		queueName:  d.QueueName,
		pool:       d.Pool,
		sp:         d.SP,
		log:        log.WithComponent("httpapi"),
	}
}
