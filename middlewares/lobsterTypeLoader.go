package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/seaharvest/lobsterstock_backend/models"
)

type lobsterTypeReader struct{}

func (r *lobsterTypeReader) getLobsterTypes(ctx context.Context, ids []int) []*dataloader.Result[*models.LobsterType] {
	resultMap, err := models.MapAllLobsterTypes(ctx)
	if err != nil {
		return handleError[*models.LobsterType](len(ids), err)
	}
	var loaderResults = make([]*dataloader.Result[*models.LobsterType], 0, len(ids))
	for _, id := range ids {
		result, ok := resultMap[id]
		if !ok {
			var v models.LobsterType
			v.ID = id
			result = &v
		}
		loaderResults = append(loaderResults, &dataloader.Result[*models.LobsterType]{Data: result})
	}
	return loaderResults
}

func GetLobsterType(ctx context.Context, id int) (*models.LobsterType, error) {
	loaders := For(ctx)
	return loaders.lobsterTypeLoader.Load(ctx, id)()
}

func GetLobsterTypes(ctx context.Context, ids []int) ([]*models.LobsterType, []error) {
	loaders := For(ctx)
	return loaders.lobsterTypeLoader.LoadMany(ctx, ids)()
}
