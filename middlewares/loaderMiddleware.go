package middlewares

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"github.com/seaharvest/lobsterstock_backend/models"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

// Loaders wrap the per-request data loaders injected via middleware.
type Loaders struct {
	lobsterTypeLoader *dataloader.Loader[int, *models.LobsterType]
	weightClassLoader *dataloader.Loader[int, *models.WeightClass]
}

// NewLoaders instantiates data loaders for the middleware
func NewLoaders() *Loaders {
	lobsterTypeReader := &lobsterTypeReader{}
	weightClassReader := &weightClassReader{}

	return &Loaders{
		lobsterTypeLoader: dataloader.NewBatchedLoader(lobsterTypeReader.getLobsterTypes, dataloader.WithWait[int, *models.LobsterType](time.Millisecond)),
		weightClassLoader: dataloader.NewBatchedLoader(weightClassReader.getWeightClasses, dataloader.WithWait[int, *models.WeightClass](time.Millisecond)),
	}
}

func LoaderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		loader := NewLoaders()
		ctx := context.WithValue(c.Request.Context(), loadersKey, loader)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func For(ctx context.Context) *Loaders {
	return ctx.Value(loadersKey).(*Loaders)
}

// handleError creates array of result with the same error repeated for as many items requested
func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}
