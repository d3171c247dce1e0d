package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/seaharvest/lobsterstock_backend/models"
)

type weightClassReader struct{}

func (r *weightClassReader) getWeightClasses(ctx context.Context, ids []int) []*dataloader.Result[*models.WeightClass] {
	resultMap, err := models.MapAllWeightClasses(ctx)
	if err != nil {
		return handleError[*models.WeightClass](len(ids), err)
	}
	var loaderResults = make([]*dataloader.Result[*models.WeightClass], 0, len(ids))
	for _, id := range ids {
		result, ok := resultMap[id]
		if !ok {
			var v models.WeightClass
			v.ID = id
			result = &v
		}
		loaderResults = append(loaderResults, &dataloader.Result[*models.WeightClass]{Data: result})
	}
	return loaderResults
}

func GetWeightClass(ctx context.Context, id int) (*models.WeightClass, error) {
	loaders := For(ctx)
	return loaders.weightClassLoader.Load(ctx, id)()
}

func GetWeightClasses(ctx context.Context, ids []int) ([]*models.WeightClass, []error) {
	loaders := For(ctx)
	return loaders.weightClassLoader.LoadMany(ctx, ids)()
}
