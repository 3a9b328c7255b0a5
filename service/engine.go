package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"tiktokcontrol/farm"
	"tiktokcontrol/models"
)

var (
	ErrSessionExists   = errors.New("automation already running for this device")
	ErrSessionNotFound = errors.New("no automation session for this device")
)

// The comment choreography's auxiliary tap points were tuned on a
// 1080x1920 reference device and are scaled to the session device's
// resolution from that frame.
const (
	referenceWidth  = 1080
	referenceHeight = 1920
)

var (
	addCommentReference   = models.Point{X: 134, Y: 715}
	returnToFeedReference = models.Point{X: 195, Y: 110}
)

// DeviceGateway is the slice of the farm client the engine drives.
type DeviceGateway interface {
	GetDeviceList(ctx context.Context) (map[string]farm.Device, error)
	GetDeviceScreenshot(ctx context.Context, deviceID string) (string, error)
	Click(ctx context.Context, deviceID string, x, y int) error
	MouseSwipe(ctx context.Context, deviceID string, swipe farm.Swipe) error
	SendText(ctx context.Context, deviceID, text string) error
	KeyDown(ctx context.Context, deviceID, key string) error
	KeyUp(ctx context.Context, deviceID, key string) error
}

// PostClassifier is the slice of the vision client the engine drives.
type PostClassifier interface {
	CheckNormalPost(ctx context.Context, imageB64 string) bool
	Analyze(ctx context.Context, imageB64 string, triggers []models.Trigger) (map[string]models.TriggerAnalysis, error)
}

// Timing holds every fixed delay of the loop and the action
// choreography. Tests shrink these; production uses DefaultTiming.
type Timing struct {
	AnalysisSettle     time.Duration // feed stabilization before screenshot
	ClickSettle        time.Duration // pre/post delay around like/save taps
	CommentOpenDelay   time.Duration // after tapping the comment icon
	CommentFieldDelay  time.Duration // after tapping the add-comment box
	CommentTypeDelay   time.Duration // after typing the comment
	EnterKeyGap        time.Duration // between ENTER key down and up
	CommentSubmitDelay time.Duration // after ENTER, and after back-to-feed
	ScrollSettleMin    time.Duration // post-swipe settle, lower bound
	ScrollSettleMax    time.Duration // post-swipe settle, upper bound
	SwipeDurationMs    int
	ErrorBackoff       time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		AnalysisSettle:     2 * time.Second,
		ClickSettle:        500 * time.Millisecond,
		CommentOpenDelay:   1500 * time.Millisecond,
		CommentFieldDelay:  time.Second,
		CommentTypeDelay:   800 * time.Millisecond,
		EnterKeyGap:        150 * time.Millisecond,
		CommentSubmitDelay: time.Second,
		ScrollSettleMin:    time.Second,
		ScrollSettleMax:    2 * time.Second,
		SwipeDurationMs:    800,
		ErrorBackoff:       5 * time.Second,
	}
}

// session is the live runtime state for one device's automation run.
// All fields behind mu are mutated only from the session's own
// goroutine; mu exists so snapshots can be read concurrently.
type session struct {
	deviceID   string
	config     models.AutomationConfig
	deviceInfo models.DeviceInfo
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}

	mu               sync.Mutex
	stats            models.SessionStats
	currentPostCount int
	currentSkipCount int // re-rolled each analysis window; 0 = not drawn
	lastComment      string
}

func (s *session) snapshot() models.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.SessionSnapshot{
		DeviceID:         s.deviceID,
		Running:          s.ctx.Err() == nil,
		Config:           s.config,
		Stats:            s.stats,
		CurrentPostCount: s.currentPostCount,
	}
}

func (s *session) addError() {
	s.mu.Lock()
	s.stats.Errors++
	s.mu.Unlock()
}

// AutomationEngine owns all automation sessions. At most one session per
// device; sessions for different devices are fully independent.
type AutomationEngine struct {
	gateway     DeviceGateway
	classifier  PostClassifier
	coordinates *CoordinateService
	comments    *CommentResolver
	logs        *LogHub
	timing      Timing

	sessions map[string]*session
	mu       sync.Mutex
}

func NewAutomationEngine(gateway DeviceGateway, classifier PostClassifier, coordinates *CoordinateService, comments *CommentResolver, logs *LogHub, timing Timing) *AutomationEngine {
	return &AutomationEngine{
		gateway:     gateway,
		classifier:  classifier,
		coordinates: coordinates,
		comments:    comments,
		logs:        logs,
		timing:      timing,
		sessions:    make(map[string]*session),
	}
}

func (e *AutomationEngine) logf(deviceID, format string, args ...interface{}) {
	e.logs.Append(deviceID, fmt.Sprintf(format, args...))
}

// StartAutomation validates the config, rejects double starts, and
// launches the session loop. The config is snapshotted; changing it
// requires stop + start.
func (e *AutomationEngine) StartAutomation(deviceID string, config models.AutomationConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid automation config: %w", err)
	}

	e.mu.Lock()
	if _, exists := e.sessions[deviceID]; exists {
		e.mu.Unlock()
		return ErrSessionExists
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		deviceID: deviceID,
		config:   config,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	e.sessions[deviceID] = s
	e.mu.Unlock()

	e.logs.ClearDeviceLogs(deviceID)
	e.logf(deviceID, "🔍 Getting device info...")
	s.deviceInfo = e.fetchDeviceInfo(ctx, deviceID)
	e.logf(deviceID, "📱 Device info: %dx%d", s.deviceInfo.Width, s.deviceInfo.Height)

	coords := e.coordinates.GetCoordinatesForDevice(deviceID, s.deviceInfo)
	e.logf(deviceID, "📍 Device coordinates loaded:")
	e.logf(deviceID, "  ❤️ Like: (%d, %d)", coords.Like.X, coords.Like.Y)
	e.logf(deviceID, "  💬 Comment: (%d, %d)", coords.Comment.X, coords.Comment.Y)
	e.logf(deviceID, "  🔖 Save: (%d, %d)", coords.Save.X, coords.Save.Y)
	e.logf(deviceID, "🚀 Starting automation for device %s", deviceID)

	go e.run(s)
	return nil
}

// StopAutomation cancels the session's pending work and removes it.
// Stopping a device that is not running is a no-op.
func (e *AutomationEngine) StopAutomation(deviceID string) {
	e.mu.Lock()
	s, ok := e.sessions[deviceID]
	if ok {
		delete(e.sessions, deviceID)
	}
	e.mu.Unlock()
	if !ok {
		return
	}
	s.cancel()
	e.logf(deviceID, "⏹️ Stopped automation for device %s", deviceID)
}

// GetSession returns a snapshot of a running session.
func (e *AutomationEngine) GetSession(deviceID string) (models.SessionSnapshot, error) {
	e.mu.Lock()
	s, ok := e.sessions[deviceID]
	e.mu.Unlock()
	if !ok {
		return models.SessionSnapshot{}, ErrSessionNotFound
	}
	return s.snapshot(), nil
}

// ListSessions snapshots every running session.
func (e *AutomationEngine) ListSessions() []models.SessionSnapshot {
	e.mu.Lock()
	sessions := make([]*session, 0, len(e.sessions))
	for _, s := range e.sessions {
		sessions = append(sessions, s)
	}
	e.mu.Unlock()

	out := make([]models.SessionSnapshot, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.snapshot())
	}
	return out
}

// fetchDeviceInfo resolves the device's resolution from the farm,
// falling back to the reference resolution so startup never blocks on a
// flaky lookup.
func (e *AutomationEngine) fetchDeviceInfo(ctx context.Context, deviceID string) models.DeviceInfo {
	fallback := models.DeviceInfo{Width: referenceWidth, Height: referenceHeight, DeviceType: "android"}
	devices, err := e.gateway.GetDeviceList(ctx)
	if err != nil {
		e.logf(deviceID, "⚠️ Failed to get device info from API, using defaults: %v", err)
		return fallback
	}
	d, ok := devices[deviceID]
	if !ok || d.Width <= 0 || d.Height <= 0 {
		return fallback
	}
	return models.DeviceInfo{Width: d.Width, Height: d.Height, DeviceType: "android"}
}

// run drives the scroll/sample/analyze/act loop. The next iteration is
// timed only after the current one completes, so iterations never
// overlap however long the network takes.
func (e *AutomationEngine) run(s *session) {
	defer close(s.done)
	for {
		if s.ctx.Err() != nil {
			return
		}
		delay := e.safeIterate(s)
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// safeIterate converts anything that escapes an iteration into a logged
// error plus backoff. Nothing terminates a session except StopAutomation.
func (e *AutomationEngine) safeIterate(s *session) (delay time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			e.logf(s.deviceID, "💥 Automation error: %v", r)
			s.addError()
			delay = e.timing.ErrorBackoff
		}
	}()
	return e.iterate(s)
}

func (e *AutomationEngine) iterate(s *session) time.Duration {
	s.mu.Lock()
	s.currentPostCount++
	s.stats.PostsScrolled++
	postCount := s.currentPostCount
	s.mu.Unlock()
	e.logf(s.deviceID, "📱 POST #%d", postCount)

	skipMin, skipMax := s.config.SkipBounds()

	s.mu.Lock()
	if s.currentSkipCount == 0 {
		s.currentSkipCount = randInt(skipMin, skipMax)
		e.logf(s.deviceID, "🎯 Selected skip interval for this analysis window: %d", s.currentSkipCount)
	}
	threshold := s.currentSkipCount
	s.mu.Unlock()

	if postCount%threshold == 0 {
		e.logf(s.deviceID, "🔍 Analyzing post #%d (every %d posts)", postCount, threshold)
		next := randInt(skipMin, skipMax)
		s.mu.Lock()
		s.currentSkipCount = next
		s.mu.Unlock()
		e.logf(s.deviceID, "🔄 Next skip interval will be %d", next)
		e.analyzeCurrentPost(s)
	}

	e.scrollToNextPost(s)

	minMs := s.config.ScrollIntervalMin * 1000
	maxMs := s.config.ScrollIntervalMax * 1000
	return time.Duration(minMs+rand.Float64()*(maxMs-minMs)) * time.Millisecond
}

// analyzeCurrentPost captures a screenshot, runs the pre-filter and the
// trigger classification, and executes every matched trigger in order.
// Failures degrade to logged errors; the loop always continues.
func (e *AutomationEngine) analyzeCurrentPost(s *session) {
	e.logf(s.deviceID, "🔍 STARTING ANALYSIS...")
	if !e.sleep(s.ctx, e.timing.AnalysisSettle) {
		return
	}

	e.logf(s.deviceID, "📸 Taking screenshot...")
	screenshot, err := e.gateway.GetDeviceScreenshot(s.ctx, s.deviceID)
	if err != nil {
		e.logf(s.deviceID, "💥 Analysis failed: %v", err)
		s.addError()
		return
	}
	e.logf(s.deviceID, "✅ Screenshot captured")

	e.logf(s.deviceID, "👁️ Checking if screenshot shows a normal post...")
	if !e.classifier.CheckNormalPost(s.ctx, screenshot) {
		e.logf(s.deviceID, "⏭️ SKIPPING: Not a normal post (missing like/comment counts)")
		return
	}
	e.logf(s.deviceID, "✅ Confirmed: Normal post detected - proceeding with trigger analysis")

	analysis, err := e.classifier.Analyze(s.ctx, screenshot, s.config.Triggers)
	if err != nil {
		e.logf(s.deviceID, "💥 Analysis failed: %v", err)
		s.addError()
		return
	}
	s.mu.Lock()
	s.stats.PostsAnalyzed++
	s.mu.Unlock()
	e.logf(s.deviceID, "📊 Trigger analysis completed")

	var matched []models.Trigger
	for _, trigger := range s.config.Triggers {
		if !trigger.Enabled {
			e.logf(s.deviceID, "%q: ❌ DISABLED", trigger.Name)
			continue
		}
		verdict, ok := analysis[trigger.ID]
		if !ok {
			e.logf(s.deviceID, "%q: ⚠️ NO ANALYSIS DATA", trigger.Name)
			continue
		}
		if verdict.Matched {
			e.logf(s.deviceID, "%q: ✅ MATCHED. Reason: %s", trigger.Name, verdict.Justification)
			matched = append(matched, trigger)
		} else {
			e.logf(s.deviceID, "%q: ❌ NO MATCH. Reason: %s", trigger.Name, verdict.Justification)
		}
	}

	if len(matched) > 0 {
		e.logf(s.deviceID, "🎯 Executing %d actions...", len(matched))
		// Device input must be serialized; matched triggers run one at a
		// time in trigger-list order.
		for _, trigger := range matched {
			e.logf(s.deviceID, "🚀 Executing action: %s for trigger %q", trigger.Action, trigger.Name)
			if e.executeTriggerAction(s, trigger) {
				e.logf(s.deviceID, "✅ Action %q completed successfully", trigger.Action)
			} else {
				e.logf(s.deviceID, "❌ Action %q failed", trigger.Action)
			}
		}
		e.logf(s.deviceID, "🏁 All actions completed for this post")
	} else {
		e.logf(s.deviceID, "⏭️ No triggers matched - continuing to next post")
	}

	s.mu.Lock()
	stats := s.stats
	s.mu.Unlock()
	e.logf(s.deviceID, "📈 Stats: Analyzed=%d, Actions=%d, Errors=%d", stats.PostsAnalyzed, stats.ActionsPerformed, stats.Errors)
}

// executeTriggerAction dispatches one matched trigger. A failure is
// counted but never aborts the remaining matched triggers.
func (e *AutomationEngine) executeTriggerAction(s *session, trigger models.Trigger) bool {
	coords := e.coordinates.GetCoordinatesForDevice(s.deviceID, s.deviceInfo)

	var ok bool
	switch trigger.Action {
	case models.ActionLike:
		ok = e.performTap(s, "LIKE", coords.Like)
	case models.ActionSave:
		ok = e.performTap(s, "SAVE", coords.Save)
	case models.ActionComment:
		s.mu.Lock()
		last := s.lastComment
		s.mu.Unlock()
		text := e.comments.Resolve(s.ctx, trigger, last)
		s.mu.Lock()
		s.lastComment = text
		s.mu.Unlock()
		ok = e.performComment(s, coords, text)
	default:
		e.logf(s.deviceID, "❌ Unknown action %q", trigger.Action)
		return false
	}

	if ok {
		s.mu.Lock()
		s.stats.ActionsPerformed++
		s.mu.Unlock()
	} else {
		s.addError()
	}
	return ok
}

// performTap is the shared like/save path: settle, one click, settle.
func (e *AutomationEngine) performTap(s *session, label string, point models.Point) bool {
	e.logf(s.deviceID, "👆 Performing %s action at coordinates: (%d, %d)", label, point.X, point.Y)
	if !e.sleep(s.ctx, e.timing.ClickSettle) {
		return false
	}
	if err := e.gateway.Click(s.ctx, s.deviceID, point.X, point.Y); err != nil {
		e.logf(s.deviceID, "❌ %s action failed: %v", label, err)
		return false
	}
	e.logf(s.deviceID, "✅ %s action completed successfully!", label)
	e.sleep(s.ctx, e.timing.ClickSettle)
	return true
}

// performComment runs the fixed comment choreography. The auxiliary tap
// points are scaled from the reference frame to this device.
func (e *AutomationEngine) performComment(s *session, coords models.DeviceCoordinates, text string) bool {
	e.logf(s.deviceID, "💬 Clicking comment button at: (%d, %d)", coords.Comment.X, coords.Comment.Y)
	if err := e.gateway.Click(s.ctx, s.deviceID, coords.Comment.X, coords.Comment.Y); err != nil {
		e.logf(s.deviceID, "❌ Failed to click comment button: %v", err)
		return false
	}
	if !e.sleep(s.ctx, e.timing.CommentOpenDelay) {
		return false
	}

	addComment := e.scaleReferencePoint(s, addCommentReference)
	e.logf(s.deviceID, "📝 Clicking 'Add Comment' at: (%d, %d)", addComment.X, addComment.Y)
	if err := e.gateway.Click(s.ctx, s.deviceID, addComment.X, addComment.Y); err != nil {
		e.logf(s.deviceID, "❌ Failed to click 'Add Comment': %v", err)
		return false
	}
	if !e.sleep(s.ctx, e.timing.CommentFieldDelay) {
		return false
	}

	e.logf(s.deviceID, "⌨️ Typing comment: %q", text)
	if err := e.gateway.SendText(s.ctx, s.deviceID, text); err != nil {
		e.logf(s.deviceID, "⚠️ Type failed: %v", err)
	}
	if !e.sleep(s.ctx, e.timing.CommentTypeDelay) {
		return false
	}

	e.logf(s.deviceID, "📤 Submitting comment with ENTER key...")
	if err := e.gateway.KeyDown(s.ctx, s.deviceID, "ENTER"); err != nil {
		e.logf(s.deviceID, "⚠️ ENTER key_down failed: %v", err)
	}
	if !e.sleep(s.ctx, e.timing.EnterKeyGap) {
		return false
	}
	if err := e.gateway.KeyUp(s.ctx, s.deviceID, "ENTER"); err != nil {
		e.logf(s.deviceID, "⚠️ ENTER key_up failed: %v", err)
	}
	if !e.sleep(s.ctx, e.timing.CommentSubmitDelay) {
		return false
	}

	returnToFeed := e.scaleReferencePoint(s, returnToFeedReference)
	e.logf(s.deviceID, "🔙 Returning to feed at: (%d, %d)", returnToFeed.X, returnToFeed.Y)
	if err := e.gateway.Click(s.ctx, s.deviceID, returnToFeed.X, returnToFeed.Y); err != nil {
		e.logf(s.deviceID, "⚠️ Return to feed failed: %v", err)
	}
	e.sleep(s.ctx, e.timing.CommentSubmitDelay)
	return true
}

func (e *AutomationEngine) scaleReferencePoint(s *session, p models.Point) models.Point {
	return models.Point{
		X: int(math.Round(float64(p.X) * float64(s.deviceInfo.Width) / referenceWidth)),
		Y: int(math.Round(float64(p.Y) * float64(s.deviceInfo.Height) / referenceHeight)),
	}
}

// scrollToNextPost swipes up and waits a random 1-2s settle. Scroll
// failures are logged but never fatal.
func (e *AutomationEngine) scrollToNextPost(s *session) {
	e.logf(s.deviceID, "📜 Scrolling to next post...")
	err := e.gateway.MouseSwipe(s.ctx, s.deviceID, farm.Swipe{
		Direction: "up",
		Length:    0.6,
		Duration:  e.timing.SwipeDurationMs,
	})
	if err != nil {
		e.logf(s.deviceID, "⚠️ Scroll error: %v", err)
	}
	settle := e.timing.ScrollSettleMin + time.Duration(rand.Int63n(int64(e.timing.ScrollSettleMax-e.timing.ScrollSettleMin)+1))
	e.sleep(s.ctx, settle)
}

// sleep waits for d unless the session is cancelled first.
func (e *AutomationEngine) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// randInt draws uniformly from [min, max] inclusive.
func randInt(min, max int) int {
	if max <= min {
		return min
	}
	return min + rand.Intn(max-min+1)
}
