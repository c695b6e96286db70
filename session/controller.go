// Package session runs one operator's forecast session: it watches the regressor
// store, issues forecast requests and publishes the latest admitted result.
package session

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"multihorizon/auth"
	"multihorizon/client"
	"multihorizon/insights"
	"multihorizon/models"
	"multihorizon/regressors"
	"multihorizon/utils"
)

// ForecastAPI is the part of the remote service a session needs.
type ForecastAPI interface {
	RequestForecast(ctx context.Context, req models.ForecastRequest, token string) (*models.ForecastResult, error)
	SaveForecast(ctx context.Context, req models.ForecastRequest, token string) error
	FetchUser(ctx context.Context, token string) (*models.UserInfo, error)
}

// Stats counts forecast requests by outcome.
type Stats struct {
	Issued    uint64 `json:"issued"`
	Settled   uint64 `json:"settled"`
	Discarded uint64 `json:"discarded"`
	InFlight  uint64 `json:"in_flight"`
}

// Controller owns the session snapshot. Every read and write of its state runs on
// its loop goroutine; network calls run elsewhere and report back through the loop.
type Controller struct {
	api   ForecastAPI
	store *regressors.Store
	auth  auth.Context
	loop  *loop

	logger         *log.Logger
	now            func() time.Time
	insights       *insights.Builder
	onChange       func(models.SessionSnapshot)
	onUnauthorized func(models.ErrorInfo)

	ctx    context.Context
	cancel context.CancelFunc

	// Loop-owned.
	snap     models.SessionSnapshot
	identity models.Identity
	epoch    uint64
	readyReq *models.ForecastRequest
	saving   int
	stats    Stats
}

// Option configures a Controller.
type Option func(*Controller)

// WithIdentity sets the starting store and item names.
func WithIdentity(id models.Identity) Option {
	return func(c *Controller) {
		c.identity = models.Identity{
			StoreName: utils.NormalizeName(id.StoreName),
			ItemName:  utils.NormalizeName(id.ItemName),
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithInsights sets the builder used by Handoff.
func WithInsights(b *insights.Builder) Option {
	return func(c *Controller) { c.insights = b }
}

// OnChange registers fn to receive every published snapshot. fn runs on the loop
// goroutine and must not call back into the controller synchronously.
func OnChange(fn func(models.SessionSnapshot)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// OnUnauthorized registers fn to be told that the host must re-authenticate.
// It runs on the loop goroutine.
func OnUnauthorized(fn func(models.ErrorInfo)) Option {
	return func(c *Controller) { c.onUnauthorized = fn }
}

// New creates a controller and installs itself as the store's mutation hook.
// Nothing is requested until Refresh or ResolveIdentity is called.
func New(api ForecastAPI, store *regressors.Store, authCtx auth.Context, opts ...Option) *Controller {
	c := &Controller{
		api:    api,
		store:  store,
		auth:   authCtx,
		logger: log.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.snap = models.SessionSnapshot{
		Status:   models.StatusIdle,
		Horizon:  store.Horizon(),
		Identity: c.identity,
	}
	c.loop = newLoop()
	store.SetOnMutation(c.Refresh)
	return c
}

// Store returns the regressor store the session watches.
func (c *Controller) Store() *regressors.Store {
	return c.store
}

// Auth returns the authentication context the session was opened with.
func (c *Controller) Auth() auth.Context {
	return c.auth
}

// Refresh queues a new forecast request for the current parameters.
func (c *Controller) Refresh() {
	c.loop.submit(c.refresh)
}

// Toggle flips one regressor day. A successful toggle triggers a refresh through the store hook.
func (c *Controller) Toggle(v regressors.Vector, dayIndex int) ([]bool, error) {
	vec, err := c.store.Toggle(v, dayIndex)
	if err != nil {
		c.logger.Printf("[SESSION] toggle %s day %d rejected: %v", v, dayIndex, err)
		return nil, err
	}
	return vec, nil
}

// SetHorizon selects a new horizon. Changing it triggers a refresh through the store hook.
func (c *Controller) SetHorizon(days int) (int, error) {
	h, err := c.store.SetHorizon(days)
	if err != nil {
		c.logger.Printf("[SESSION] horizon %d rejected: %v", days, err)
	}
	return h, err
}

// SetItemName changes the forecast item and refreshes when it differs.
func (c *Controller) SetItemName(name string) error {
	name = utils.NormalizeName(name)
	return c.loop.call(func() {
		if c.identity.ItemName == name {
			return
		}
		c.identity.ItemName = name
		c.refresh()
	})
}

// ResolveIdentity asks the service which store the token belongs to and issues
// the first forecast for it.
func (c *Controller) ResolveIdentity(ctx context.Context) error {
	if err := c.auth.Check(c.now()); err != nil {
		if callErr := c.loop.call(func() { c.supersede(err) }); callErr != nil {
			return callErr
		}
		return err
	}

	user, err := c.api.FetchUser(ctx, c.auth.Token)
	if err == nil && user == nil {
		err = models.NewError(models.KindValidationRejected, "Store name not provided by server")
	}
	if err != nil {
		c.logger.Printf("[SESSION] identity resolution failed: %v", err)
		if callErr := c.loop.call(func() { c.supersede(err) }); callErr != nil {
			return callErr
		}
		return err
	}

	return c.loop.call(func() {
		c.identity.StoreName = utils.NormalizeName(user.StoreName)
		c.logger.Printf("[SESSION] identity resolved store=%q item=%q", c.identity.StoreName, c.identity.ItemName)
		c.refresh()
	})
}

// Save persists the parameters of the forecast currently on screen. It never
// changes the epoch, the status or the result; only the saving fields move.
func (c *Controller) Save(ctx context.Context) error {
	var req models.ForecastRequest
	var prepErr error
	err := c.loop.call(func() {
		switch {
		case c.snap.Status != models.StatusReady || c.readyReq == nil:
			prepErr = models.NewError(models.KindNoDataAvailable, "Nothing to save yet. Wait for a forecast to load first.")
		default:
			prepErr = c.auth.Check(c.now())
		}
		if prepErr != nil {
			info := models.InfoFromError(prepErr)
			c.snap.SaveError = &info
			c.publish()
			return
		}
		req = cloneRequest(*c.readyReq)
		c.saving++
		c.snap.Saving = true
		c.snap.SaveError = nil
		c.publish()
	})
	if err != nil {
		return err
	}
	if prepErr != nil {
		c.logger.Printf("[SESSION] save rejected locally: %v", prepErr)
		return prepErr
	}

	saveErr := c.api.SaveForecast(client.WithRequestID(ctx, uuid.NewString()), req, c.auth.Token)

	err = c.loop.call(func() {
		c.saving--
		c.snap.Saving = c.saving > 0
		if saveErr != nil {
			info := models.InfoFromError(saveErr)
			c.snap.SaveError = &info
			if info.Kind == models.KindUnauthorized {
				c.requireReauth(info)
			}
		} else {
			at := c.now()
			c.snap.SaveError = nil
			c.snap.LastSavedAt = &at
		}
		c.publish()
	})
	if saveErr != nil {
		c.logger.Printf("[SESSION] save failed: %v", saveErr)
		return saveErr
	}
	if err != nil {
		return err
	}
	c.logger.Printf("[SESSION] saved forecast store=%q item=%q horizon=%d", req.StoreName, req.ItemName, req.HorizonDays)
	return nil
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() models.SessionSnapshot {
	var out models.SessionSnapshot
	c.read(func() { out = c.snap.Clone() })
	return out
}

// Stats returns the request counters.
func (c *Controller) Stats() Stats {
	var out Stats
	c.read(func() {
		out = c.stats
		out.InFlight = c.stats.Issued - c.stats.Settled - c.stats.Discarded
	})
	return out
}

// Handoff builds the insights view from the current snapshot.
func (c *Controller) Handoff(ctx context.Context) (*models.InsightsHandoff, error) {
	return c.insights.Build(ctx, c.Snapshot())
}

// Close stops the loop. Responses still in flight are dropped.
func (c *Controller) Close() {
	c.store.SetOnMutation(nil)
	c.cancel()
	c.loop.stop()
}

// read runs fn on the loop, or directly once the loop has exited.
func (c *Controller) read(fn func()) {
	if err := c.loop.call(fn); err != nil {
		<-c.loop.done
		fn()
	}
}

// refresh runs on the loop.
func (c *Controller) refresh() {
	c.epoch++
	epoch := c.epoch
	regs := c.store.Snapshot()

	c.snap.RequestEpoch = epoch
	c.snap.Horizon = regs.Horizon
	c.snap.Identity = c.identity

	if err := c.validate(); err != nil {
		c.logger.Printf("[SESSION] epoch=%d rejected locally: %v", epoch, err)
		c.reject(err)
		return
	}

	req := models.ForecastRequest{
		HorizonDays: regs.Horizon,
		IsHoliday:   utils.BoolsToInts(regs.IsHoliday[:regs.Horizon]),
		OnPromotion: utils.BoolsToInts(regs.OnPromotion[:regs.Horizon]),
		StoreName:   c.identity.StoreName,
		ItemName:    c.identity.ItemName,
	}

	c.snap.Status = models.StatusLoading
	c.snap.Result = nil
	c.snap.Error = nil
	c.snap.Violations = nil
	c.stats.Issued++
	c.publish()

	token := c.auth.Token
	requestID := uuid.NewString()
	c.logger.Printf("[SESSION] epoch=%d issued id=%s horizon=%d store=%q item=%q", epoch, requestID, req.HorizonDays, req.StoreName, req.ItemName)

	go func() {
		ctx := client.WithRequestID(c.ctx, requestID)
		result, err := c.api.RequestForecast(ctx, req, token)
		c.loop.submit(func() { c.settle(epoch, req, result, err) })
	}()
}

// settle admits a completion only when it carries the current epoch.
func (c *Controller) settle(epoch uint64, req models.ForecastRequest, result *models.ForecastResult, err error) {
	if epoch != c.epoch {
		c.stats.Discarded++
		c.logger.Printf("[SESSION] discarded epoch=%d current=%d: epoch mismatch", epoch, c.epoch)
		return
	}
	c.stats.Settled++

	if err != nil {
		c.logger.Printf("[SESSION] epoch=%d failed: %v", epoch, err)
		c.reject(err)
		return
	}
	if result == nil {
		c.reject(models.NewError(models.KindValidationRejected, "Unexpected response from the forecasting service: empty result"))
		return
	}

	c.snap.Status = models.StatusReady
	c.snap.Result = result.Clone()
	c.snap.Error = nil
	c.snap.Violations = result.Violations()
	for _, v := range c.snap.Violations {
		c.logger.Printf("[SESSION] epoch=%d quantiles out of order on day %d: p10=%g p50=%g p90=%g", epoch, v.Day, v.P10, v.P50, v.P90)
	}
	r := cloneRequest(req)
	c.readyReq = &r
	c.logger.Printf("[SESSION] epoch=%d ready", epoch)
	c.publish()
}

// supersede starts a new epoch that fails immediately with err, so any request
// still in flight is discarded when it lands.
func (c *Controller) supersede(err error) {
	c.epoch++
	c.snap.RequestEpoch = c.epoch
	c.reject(err)
}

// reject publishes err as the session error. It runs on the loop.
func (c *Controller) reject(err error) {
	info := models.InfoFromError(err)
	c.snap.Status = models.StatusError
	c.snap.Result = nil
	c.snap.Violations = nil
	c.snap.Error = &info
	c.readyReq = nil
	if info.Kind == models.KindUnauthorized {
		c.requireReauth(info)
	}
	c.publish()
}

func (c *Controller) requireReauth(info models.ErrorInfo) {
	c.snap.ReauthRequired = true
	if c.onUnauthorized != nil {
		c.onUnauthorized(info)
	}
}

func (c *Controller) validate() error {
	if utils.IsPlaceholderStoreName(c.identity.StoreName) {
		return models.NewError(models.KindIdentityUnresolved, "Store name is not available yet. Please wait or log in again.")
	}
	if c.identity.ItemName == "" {
		return models.NewError(models.KindIdentityUnresolved, "Choose an item to forecast.")
	}
	return c.auth.Check(c.now())
}

func (c *Controller) publish() {
	if c.onChange != nil {
		c.onChange(c.snap.Clone())
	}
}

func cloneRequest(r models.ForecastRequest) models.ForecastRequest {
	r.IsHoliday = append([]int(nil), r.IsHoliday...)
	r.OnPromotion = append([]int(nil), r.OnPromotion...)
	return r
}
