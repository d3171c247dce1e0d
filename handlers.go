package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/seaharvest/lobsterstock_backend/config"
	"github.com/seaharvest/lobsterstock_backend/metrics"
	"github.com/seaharvest/lobsterstock_backend/middlewares"
	"github.com/seaharvest/lobsterstock_backend/models"
	"github.com/seaharvest/lobsterstock_backend/models/reports"
	"github.com/seaharvest/lobsterstock_backend/utils"
	"github.com/seaharvest/lobsterstock_backend/workflow"
	"github.com/sirupsen/logrus"
)

// App bundles the long-lived collaborators the HTTP surface needs.
type App struct {
	Cache     *models.ReferenceCache
	Refresher *workflow.Refresher
	Listener  *workflow.ChangeFeedListener
	Logger    *logrus.Logger
}

func NewApp(logger *logrus.Logger) *App {
	cache := models.NewReferenceCache()
	refresher := workflow.NewRefresher(cache, logger)
	return &App{
		Cache:     cache,
		Refresher: refresher,
		Listener:  workflow.NewChangeFeedListener(refresher, logger),
		Logger:    logger,
	}
}

// procedureErrorStatus maps the closed procedure-error kinds to HTTP codes.
// This is the only boundary that translates them; nothing matches on message
// text.
func procedureErrorStatus(kind utils.ProcedureErrorKind) int {
	switch kind {
	case utils.ProcedureErrorQuantityInvalid, utils.ProcedureErrorDestinationRequired:
		return http.StatusBadRequest
	case utils.ProcedureErrorInventoryMissing:
		return http.StatusNotFound
	case utils.ProcedureErrorInsufficientStock:
		return http.StatusConflict
	case utils.ProcedureErrorProcedureUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (app *App) loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
			return
		}
		info, err := models.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func (app *App) logoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := models.Logout(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": ok})
	}
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

func (app *App) changePasswordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req changePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "old_password and new_password are required"})
			return
		}
		user, err := models.ChangePassword(c.Request.Context(), req.OldPassword, req.NewPassword)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// dashboardHandler serves the current snapshot. Before the first local
// refresh it falls back to the Redis mirror (another replica's work); with
// neither available it refreshes synchronously once.
func (app *App) dashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if snapshot := app.Refresher.Snapshot(); snapshot != nil {
			c.JSON(http.StatusOK, snapshot)
			return
		}

		if mirrored, ok, _ := reports.LoadMirroredSnapshot(); ok {
			c.JSON(http.StatusOK, mirrored)
			return
		}

		if err := app.Refresher.Refresh(c.Request.Context()); err != nil {
			config.LogError(app.Logger, "handlers", "dashboardHandler", "cold refresh", nil, err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "dashboard is not ready"})
			return
		}
		c.JSON(http.StatusOK, app.Refresher.Snapshot())
	}
}

func (app *App) refreshHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := app.Refresher.Refresh(c.Request.Context()); err != nil {
			config.LogError(app.Logger, "handlers", "refreshHandler", "manual refresh", nil, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "refresh failed"})
			return
		}
		c.JSON(http.StatusOK, app.Refresher.Snapshot())
	}
}

func (app *App) inventoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		rows, err := models.GetInventorySnapshot(ctx)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		typeNames, err := app.Cache.LobsterTypeNames(ctx)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		weightRanges, err := app.Cache.WeightRanges(ctx)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"total":         reports.TotalStock(rows),
			"stock_by_type": reports.StockByType(rows, typeNames, weightRanges),
		})
	}
}

// breakdownHandler returns the per-weight-class rows for one lobster type.
// The stock-detail view omits empty rows; the transaction form passes all=1
// to see every class.
func (app *App) breakdownHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		typeId, err := strconv.Atoi(c.Param("typeId"))
		if err != nil || typeId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lobster type id"})
			return
		}
		onlyInStock := c.Query("all") != "1"

		rows, err := models.GetWeightClassBreakdown(c.Request.Context(), typeId, onlyInStock)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"lobster_type_id": typeId, "breakdown": rows})
	}
}

// parseDateRange reads start/end query params (2006-01-02). Defaults: start
// of the current month through now. End is widened to the end of its day so
// the range is inclusive.
func parseDateRange(c *gin.Context) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := now

	if v := c.Query("start"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return start, end, fmt.Errorf("invalid start date %q", v)
		}
		start = parsed
	}
	if v := c.Query("end"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return start, end, fmt.Errorf("invalid end date %q", v)
		}
		end = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	if end.Before(start) {
		return start, end, errors.New("end is before start")
	}
	return start, end, nil
}

func parseTransactionFilter(c *gin.Context) (models.TransactionFilter, error) {
	var filter models.TransactionFilter
	if v := c.Query("lobster_type_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil || id <= 0 {
			return filter, fmt.Errorf("invalid lobster_type_id %q", v)
		}
		filter.LobsterTypeId = id
	}
	if v := c.Query("type"); v != "" {
		txnType := models.TransactionType(v)
		if !txnType.Valid() {
			return filter, fmt.Errorf("invalid transaction type %q", v)
		}
		filter.TransactionType = txnType
	}
	return filter, nil
}

// transactionView decorates a ledger row with resolved reference names for
// the history table.
type transactionView struct {
	*models.Transaction
	LobsterTypeName string `json:"lobster_type_name"`
	WeightRange     string `json:"weight_range"`
}

type transactionViewEdge struct {
	Cursor string           `json:"cursor"`
	Node   *transactionView `json:"node"`
}

// resolveTransactionViews batches the reference lookups for one page through
// the per-request dataloaders, so a page of N rows costs two queries, not 2N.
func resolveTransactionViews(ctx context.Context, edges []*models.TransactionEdge) []*transactionViewEdge {
	typeIds := make([]int, len(edges))
	classIds := make([]int, len(edges))
	for i, e := range edges {
		typeIds[i] = e.Node.LobsterTypeId
		classIds[i] = e.Node.WeightClassId
	}
	types, _ := middlewares.GetLobsterTypes(ctx, typeIds)
	classes, _ := middlewares.GetWeightClasses(ctx, classIds)

	out := make([]*transactionViewEdge, len(edges))
	for i, e := range edges {
		view := &transactionView{Transaction: e.Node}
		if i < len(types) && types[i] != nil {
			view.LobsterTypeName = types[i].Name
		}
		if i < len(classes) && classes[i] != nil {
			view.WeightRange = classes[i].WeightRange
		}
		out[i] = &transactionViewEdge{Cursor: e.Cursor, Node: view}
	}
	return out
}

func (app *App) listTransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start, end, err := parseDateRange(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter, err := parseTransactionFilter(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		limit := 20
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
				limit = n
			}
		}
		var after *string
		if v := c.Query("after"); v != "" {
			after = &v
		}

		ctx := c.Request.Context()
		conn, err := models.PaginateTransactions(ctx, limit, after, start, end, filter)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"edges":    resolveTransactionViews(ctx, conn.Edges),
			"pageInfo": conn.PageInfo,
		})
	}
}

// createTransactionHandler is the single write path: every stock mutation
// goes through ManageInventory and triggers an immediate refresh on success.
func (app *App) createTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.ManageInventoryInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		ctx := c.Request.Context()
		txn, err := models.ManageInventory(ctx, input)
		if err != nil {
			kind := utils.ClassifyProcedureError(err)
			status := procedureErrorStatus(kind)
			if status == http.StatusInternalServerError {
				config.LogError(app.Logger, "handlers", "createTransactionHandler", "manage inventory", input, err)
			}
			c.JSON(status, gin.H{"error": err.Error(), "kind": string(kind)})
			return
		}
		metrics.TransactionsTotal.WithLabelValues(string(txn.TransactionType)).Inc()

		// The change feed will also arrive, but the submitting user should
		// see their own write immediately.
		if err := app.Refresher.Refresh(ctx); err != nil {
			config.LogError(app.Logger, "handlers", "createTransactionHandler", "post-commit refresh", nil, err)
		}

		c.JSON(http.StatusCreated, txn)
	}
}

type precheckRequest struct {
	LobsterTypeId int `json:"lobster_type_id" binding:"required"`
	WeightClassId int `json:"weight_class_id" binding:"required"`
	Quantity      int `json:"quantity" binding:"required"`
}

func (app *App) precheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req precheckRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		err := models.PrecheckStock(c.Request.Context(), req.LobsterTypeId, req.WeightClassId, req.Quantity)
		if err != nil {
			kind := utils.ClassifyProcedureError(err)
			c.JSON(procedureErrorStatus(kind), gin.H{"error": err.Error(), "kind": string(kind)})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func (app *App) exportTransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start, end, err := parseDateRange(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter, err := parseTransactionFilter(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=transactions.xlsx")
		if err := reports.ExportTransactionsExcel(c.Request.Context(), c.Writer, app.Cache, start, end, filter); err != nil {
			config.LogError(app.Logger, "handlers", "exportTransactionsHandler", "export", nil, err)
			c.Status(http.StatusInternalServerError)
		}
	}
}

func (app *App) lobsterTypesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := app.Cache.LobsterTypes(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func (app *App) weightClassesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := app.Cache.WeightClasses(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

// requireOps admits ops callers: a logged-in session, or a service JWT with
// the admin role (schedulers, exporters).
func requireOps() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if claim := middlewares.CtxValue(ctx); claim != nil && claim.Role == string(models.UserRoleAdmin) {
			c.Next()
			return
		}
		if _, ok := utils.GetUsernameFromContext(ctx); ok {
			c.Next()
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		c.Abort()
	}
}

// serviceTokenHandler mints a JWT for service-to-service callers. Admin
// sessions only.
func (app *App) serviceTokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		username, ok := utils.GetUsernameFromContext(ctx)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		db := config.GetDB()
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db is nil"})
			return
		}
		var user models.User
		if err := db.WithContext(ctx).Where("username = ?", username).Take(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if user.Role != models.UserRoleAdmin {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		token, err := utils.JwtGenerate(user.ID, string(user.Role))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

type outboxReplayRequest struct {
	RecordId int `json:"record_id"`
}

// outboxReplayHandler is ops tooling: requeue a DEAD or FAILED change event
// for publishing. Attempts are reset so the dispatcher doesn't immediately
// re-mark it DEAD.
func (app *App) outboxReplayHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req outboxReplayRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if req.RecordId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "record_id is required"})
			return
		}

		db := config.GetDB()
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db is nil"})
			return
		}
		now := time.Now().UTC()
		if err := db.WithContext(c.Request.Context()).
			Model(&models.ChangeEventRecord{}).
			Where("id = ?", req.RecordId).
			Updates(map[string]interface{}{
				"publish_status":     models.OutboxPublishStatusFailed,
				"publish_attempts":   0,
				"next_attempt_at":    &now,
				"locked_at":          nil,
				"locked_by":          nil,
				"last_publish_error": nil,
			}).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"record_id":       req.RecordId,
			"publish_status":  models.OutboxPublishStatusFailed,
			"next_attempt_at": now.Format(time.RFC3339Nano),
		})
	}
}

// clearReferenceCacheHandler is ops tooling for the rare taxonomy edit:
// drop the cached reference data and rebuild the dashboard against the new
// names.
func (app *App) clearReferenceCacheHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		app.Cache.Clear()
		if err := app.Refresher.Refresh(c.Request.Context()); err != nil {
			config.LogError(app.Logger, "handlers", "clearReferenceCacheHandler", "refresh after clear", nil, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "cache cleared but refresh failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
