package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sakif/kitchi/internal/auth"
	"github.com/sakif/kitchi/internal/functions"
	"github.com/sakif/kitchi/internal/handler"
	"github.com/sakif/kitchi/internal/metrics"
	"github.com/sakif/kitchi/internal/model"
	sqliteRepo "github.com/sakif/kitchi/internal/repository/sqlite"
	"github.com/sakif/kitchi/internal/service"
	"github.com/sakif/kitchi/internal/spoonacular"
)

// testEnv wires real services over an in-memory database. The recipe API
// and the serverless functions are httptest servers.
type testEnv struct {
	db     *sqliteRepo.DB
	tokens *auth.TokenService
	logger *slog.Logger
	events *recordingStream

	auth      *handler.AuthHandler
	profile   *handler.ProfileHandler
	pantry    *handler.PantryHandler
	bookmarks *handler.BookmarkHandler
	recipes   *handler.RecipeHandler
	devices   *handler.DeviceHandler
	analyze   *handler.AnalyzeHandler

	recipeAPI *fakeSpoonacular
	functions *httptest.Server
}

const testImageMax = 1 << 10

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	api := newFakeSpoonacular(t)
	fn := newFakeFunctions(t)

	recipeClient := spoonacular.New(api.server.URL, "test-key", 0, 5*time.Second, metrics.Noop{})
	fnClient := functions.New(fn.URL, "fn-key", 5*time.Second, metrics.Noop{})
	fetcher := functions.NewImageFetcherWithClient(fn.Client(), testImageMax)

	events := &recordingStream{}
	authSvc := service.NewAuthService(db, db, db, tokens, auth.NewPasswordServiceForTest(4), logger)
	pantrySvc := service.NewPantryService(db, db, &discardPublisher{}, logger)
	recipeSvc := service.NewRecipeService(recipeClient, nil, db, db, logger)

	return &testEnv{
		db:        db,
		tokens:    tokens,
		logger:    logger,
		events:    events,
		auth:      handler.NewAuthHandler(authSvc, nil, time.Hour, logger),
		profile:   handler.NewProfileHandler(service.NewProfileService(db, db, logger), logger),
		pantry:    handler.NewPantryHandler(pantrySvc, events, logger),
		bookmarks: handler.NewBookmarkHandler(service.NewBookmarkService(db, recipeClient, logger), logger),
		recipes:   handler.NewRecipeHandler(recipeSvc, service.NewShoppingService(recipeSvc, db), logger),
		devices:   handler.NewDeviceHandler(service.NewDeviceService(db, logger), logger),
		analyze:   handler.NewAnalyzeHandler(service.NewAnalyzerService(fnClient, fetcher, testImageMax, logger), testImageMax, logger),
		recipeAPI: api,
		functions: fn,
	}
}

// signUp creates an account through the handler and returns its user id.
func (e *testEnv) signUp(t *testing.T, email string) string {
	t.Helper()
	rr := httptest.NewRecorder()
	e.auth.HandleSignUp(rr, jsonRequest(http.MethodPost, "/auth/signup", map[string]string{
		"email": email, "password": "secret123",
	}))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var res service.AuthResult
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	return res.Profile.ID
}

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body) //nolint:errcheck
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// as attaches userID the way RequireAuth would.
func as(req *http.Request, userID string) *http.Request {
	return req.WithContext(auth.WithUserID(req.Context(), userID))
}

func decodeError(t *testing.T, body io.Reader) handler.ErrorResponse {
	t.Helper()
	var e handler.ErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&e))
	return e
}

// =========================================================================
// Stand-ins
// =========================================================================

type discardPublisher struct{}

func (discardPublisher) Publish(string, any) {}

type recordingStream struct {
	mu    sync.Mutex
	users []string
}

func (s *recordingStream) Serve(w http.ResponseWriter, _ *http.Request, userID string) {
	s.mu.Lock()
	s.users = append(s.users, userID)
	s.mu.Unlock()
	w.WriteHeader(http.StatusSwitchingProtocols)
}

// fakeSpoonacular serves the three recipe endpoints from fixed data.
type fakeSpoonacular struct {
	server  *httptest.Server
	mu      sync.Mutex
	queries []string
	found   []model.Recipe
	info    map[string]spoonacular.Information
}

func newFakeSpoonacular(t *testing.T) *fakeSpoonacular {
	f := &fakeSpoonacular{
		found: []model.Recipe{
			{ID: 101, Title: "Egg Fried Rice", Image: "https://img/101.jpg", UsedIngredientCount: 2},
			{ID: 102, Title: "Rice Pudding", Image: "https://img/102.jpg", UsedIngredientCount: 1},
		},
		info: map[string]spoonacular.Information{
			"101": {
				ID:           101,
				Title:        "Egg Fried Rice",
				Summary:      "Quick <b>weeknight</b> dish.",
				Instructions: "<ol><li>Cook rice.</li><li>Fry eggs.</li></ol>",
				ExtendedIngredients: []model.Ingredient{
					{Name: "rice", Original: "2 cups rice"},
					{Name: "eggs", Original: "2 eggs"},
					{Name: "soy sauce", Original: "1 tbsp soy sauce"},
				},
			},
			"102": {ID: 102, Title: "Rice Pudding"},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /recipes/findByIngredients", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.queries = append(f.queries, r.URL.Query().Get("ingredients"))
		f.mu.Unlock()
		if r.URL.Query().Get("ingredients") == "gravel" {
			w.Write([]byte("[]")) //nolint:errcheck
			return
		}
		json.NewEncoder(w).Encode(f.found) //nolint:errcheck
	})
	mux.HandleFunc("GET /recipes/informationBulk", func(w http.ResponseWriter, r *http.Request) {
		out := []spoonacular.Information{}
		for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
			if info, ok := f.info[id]; ok {
				out = append(out, info)
			}
		}
		json.NewEncoder(w).Encode(out) //nolint:errcheck
	})
	mux.HandleFunc("GET /recipes/{id}/information", func(w http.ResponseWriter, r *http.Request) {
		info, ok := f.info[r.PathValue("id")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(info) //nolint:errcheck
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// newFakeFunctions serves the two functions plus a downloadable image.
func newFakeFunctions(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyze-ingredients", func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile("image")
		if err != nil {
			http.Error(w, "no image", http.StatusBadRequest)
			return
		}
		file.Close()
		json.NewEncoder(w).Encode(map[string]string{"ingredients": "- eggs\n- spinach"}) //nolint:errcheck
	})
	mux.HandleFunc("POST /generate-recipe", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Ingredients string `json:"ingredients"`
		}
		json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck
		json.NewEncoder(w).Encode(map[string]string{"recipe": "Omelette with " + body.Ingredients}) //nolint:errcheck
	})
	mux.HandleFunc("GET /photo.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("\x89PNG fake")) //nolint:errcheck
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}
