package httpapi

import (
	"context"

	"editd/internal/manager"
	"editd/internal/queue"
	"editd/internal/results"
	"editd/internal/store"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Submit(req queue.SubmitRequest) (string, error)
	Job(id string) (store.Job, error)
	ModelStatus() manager.Status
	QueueDepth() int
	Load(ctx context.Context) error
	Unload(force bool) error
	ResultPath(name string) (string, error)
}

// App wires the core components into the Service consumed by the router.
type App struct {
	Queue   *queue.Queue
	Store   *store.Store
	Manager *manager.Manager
	Results *results.Store
}

func (a *App) Submit(req queue.SubmitRequest) (string, error) { return a.Queue.Submit(req) }
func (a *App) Job(id string) (store.Job, error)               { return a.Store.Get(id) }
func (a *App) ModelStatus() manager.Status                    { return a.Manager.Status() }
func (a *App) QueueDepth() int                                { return a.Queue.Depth() }
func (a *App) Unload(force bool) error                        { return a.Manager.Unload(force) }
func (a *App) ResultPath(name string) (string, error)         { return a.Results.Path(name) }

func (a *App) Load(ctx context.Context) error {
	_, err := a.Manager.EnsureLoaded(ctx)
	return err
}
