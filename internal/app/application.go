package app

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"

	"github.com/kk-code-lab/seekr/internal/config"
	"github.com/kk-code-lab/seekr/internal/embed"
	"github.com/kk-code-lab/seekr/internal/logging"
	"github.com/kk-code-lab/seekr/internal/pathnorm"
	"github.com/kk-code-lab/seekr/internal/search"
	statepkg "github.com/kk-code-lab/seekr/internal/state"
	inputui "github.com/kk-code-lab/seekr/internal/ui/input"
	renderui "github.com/kk-code-lab/seekr/internal/ui/render"
)

// Options wires the collaborators of an Application.
type Options struct {
	Config   *config.Config
	Backend  search.Backend
	Embedder embed.Embedder

	// Query and ImagePath prefill the fields; a non-empty value submits
	// the search on start.
	Query     string
	ImagePath string

	// Screen replaces the terminal, for tests.
	Screen tcell.Screen
	Logger *log.Logger
}

// Application represents the running app.
type Application struct {
	screen     tcell.Screen
	state      *statepkg.AppState
	reducer    *statepkg.StateReducer
	renderer   *renderui.Renderer
	input      *inputui.InputHandler
	actionCh   chan statepkg.Action
	shouldQuit bool

	backend    search.Backend
	executor   *executor
	normalizer *pathnorm.Normalizer
	timeout    time.Duration
	logger     *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	clipboardCmd   []string
	clipboardAvail bool
	openerCmd      []string

	lastClickKey  string
	lastClickTime time.Time
}

// NewApplication initializes the screen and the state around opts.
func NewApplication(opts Options) (*Application, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	norm, err := cfg.Normalizer()
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.WithPrefix("app")
	}

	screen := opts.Screen
	if screen == nil {
		if screen, err = tcell.NewScreen(); err != nil {
			return nil, err
		}
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	// Parse mouse sequences so modified clicks don't leak as key events.
	screen.EnableMouse()
	if err := flushPendingInput(); err != nil {
		logger.Debug("flush console input", "err", err)
	}

	clipboardCmd, clipboardAvail := detectClipboard()
	openerCmd, _ := detectOpener()

	state := newInitialState(cfg, clipboardAvail)
	state.ScreenWidth, state.ScreenHeight = screen.Size()

	actionCh := make(chan statepkg.Action, 64)
	dispatch := func(action statepkg.Action) {
		select {
		case actionCh <- action:
		default:
			go func() { actionCh <- action }()
		}
	}
	state.SetDispatch(dispatch)

	ctx, cancel := context.WithCancel(context.Background())
	ex := newExecutor(ctx, opts.Backend, opts.Embedder, dispatch, logger)
	ex.searchTimeout = cfg.Backend.Timeout.Duration
	ex.embedTimeout = cfg.Embedding.Timeout.Duration

	deps := statepkg.Deps{
		Projector:  cfg.Projector(norm),
		Thresholds: cfg.ReconcileThresholds(),
		PageSize:   cfg.Results.PageSize,
		Overscan:   cfg.Results.Overscan,
		Stat:       statImage,
	}
	if opts.Backend != nil {
		deps.Executor = ex
	}
	reducer := statepkg.NewStateReducer(deps)
	renderer := renderui.NewRenderer(screen, renderui.WithNormalizer(norm))
	inputHandler := inputui.NewInputHandler(actionCh)
	inputHandler.SetState(state)

	app := &Application{
		screen:         screen,
		state:          state,
		reducer:        reducer,
		renderer:       renderer,
		input:          inputHandler,
		actionCh:       actionCh,
		backend:        opts.Backend,
		executor:       ex,
		normalizer:     norm,
		timeout:        cfg.Backend.Timeout.Duration,
		logger:         logger,
		ctx:            ctx,
		cancel:         cancel,
		clipboardCmd:   clipboardCmd,
		clipboardAvail: clipboardAvail,
		openerCmd:      openerCmd,
	}

	reducer.Refresh(state)
	if opts.Query != "" || opts.ImagePath != "" {
		state.Query = opts.Query
		state.QueryCursor = len([]rune(opts.Query))
		state.ImagePath = opts.ImagePath
		state.ImageCursor = len([]rune(opts.ImagePath))
		if _, err := reducer.Reduce(state, statepkg.SubmitQueryAction{}); err != nil {
			logger.Warn("initial search", "err", err)
		}
	}
	return app, nil
}

func newInitialState(cfg *config.Config, clipboardAvail bool) *statepkg.AppState {
	return &statepkg.AppState{
		Focus:              statepkg.FocusQuery,
		PageNumber:         1,
		ShowSnippets:       cfg.UI.ShowSnippets,
		ClipboardAvailable: clipboardAvail,
	}
}

// Close stops background work and restores the terminal. The backend
// belongs to the caller.
func (app *Application) Close() error {
	app.cancel()
	app.executor.wait()
	app.screen.Fini()
	return nil
}
