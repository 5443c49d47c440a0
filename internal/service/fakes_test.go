package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sakif/kitchi/internal/apperror"
	"github.com/sakif/kitchi/internal/functions"
	"github.com/sakif/kitchi/internal/model"
	"github.com/sakif/kitchi/internal/spoonacular"
)

// =========================================================================
// In-memory fakes for the repository and client interfaces. Plain structs,
// no mock framework: each fake does just enough to behave like the real
// thing and records what the tests need to assert on.
// =========================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- users ---

type fakeUserRepo struct {
	users   map[string]*model.User
	nextID  int
	deleted []string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, u *model.User) error {
	u.Email = strings.ToLower(u.Email)
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return apperror.Conflict("email", "User already registered")
		}
	}
	f.nextID++
	u.ID = fmt.Sprintf("user-%d", f.nextID)
	u.CreatedAt = time.Now()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return u, nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) UpsertGitHubUser(_ context.Context, githubID int64, email string) (*model.User, bool, error) {
	for _, u := range f.users {
		if u.GitHubID != nil && *u.GitHubID == githubID {
			return u, false, nil
		}
	}
	f.nextID++
	id := githubID
	u := &model.User{ID: fmt.Sprintf("user-%d", f.nextID), Email: email, GitHubID: &id}
	f.users[u.ID] = u
	return u, true, nil
}

func (f *fakeUserRepo) DeleteUser(_ context.Context, id string) error {
	delete(f.users, id)
	f.deleted = append(f.deleted, id)
	return nil
}

// --- profiles ---

type fakeProfileRepo struct {
	profiles map[string]*model.Profile
	// upserts records every username passed to UpsertProfile, in order.
	upserts []string
	// conflicts lists usernames that are treated as taken.
	conflicts map[string]bool
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[string]*model.Profile), conflicts: make(map[string]bool)}
}

func (f *fakeProfileRepo) UpsertProfile(_ context.Context, p *model.Profile) error {
	f.upserts = append(f.upserts, p.Username)
	if f.conflicts[p.Username] {
		return apperror.Conflict("username", fmt.Sprintf("Username %q is already taken", p.Username))
	}
	for id, existing := range f.profiles {
		if id != p.ID && existing.Username == p.Username {
			return apperror.Conflict("username", fmt.Sprintf("Username %q is already taken", p.Username))
		}
	}
	p.UpdatedAt = time.Now()
	cp := *p
	if old, ok := f.profiles[p.ID]; ok && cp.Email == "" {
		cp.Email = old.Email
	}
	f.profiles[p.ID] = &cp
	return nil
}

func (f *fakeProfileRepo) GetProfile(_ context.Context, id string) (*model.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, apperror.NotFound("profile", id)
	}
	cp := *p
	return &cp, nil
}

// --- pantry ---

type fakePantryRepo struct {
	items  []model.PantryItem
	nextID int
	err    error
}

func (f *fakePantryRepo) ListPantryItems(_ context.Context, userID string, order model.SortOrder) ([]model.PantryItem, error) {
	out := []model.PantryItem{}
	for _, it := range f.items {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if order == model.SortDesc {
			return out[i].ExpiryDate > out[j].ExpiryDate
		}
		return out[i].ExpiryDate < out[j].ExpiryDate
	})
	return out, nil
}

func (f *fakePantryRepo) CreatePantryItems(_ context.Context, items []*model.PantryItem) error {
	if f.err != nil {
		return f.err
	}
	for _, it := range items {
		f.nextID++
		it.ID = fmt.Sprintf("item-%d", f.nextID)
		it.CreatedAt = time.Now()
		f.items = append(f.items, *it)
	}
	return nil
}

func (f *fakePantryRepo) DeletePantryItem(_ context.Context, userID, id string) (*model.PantryItem, error) {
	for i, it := range f.items {
		if it.ID == id && it.UserID == userID {
			f.items = slices.Delete(f.items, i, i+1)
			return &it, nil
		}
	}
	return nil, apperror.NotFound("pantry item", id)
}

func (f *fakePantryRepo) PantryFoodNames(_ context.Context, userID string) ([]string, error) {
	names := []string{}
	for _, it := range f.items {
		if it.UserID == userID {
			names = append(names, it.FoodName)
		}
	}
	return names, nil
}

// --- bookmarks ---

type fakeBookmarkRepo struct {
	rows []model.Bookmark
}

func (f *fakeBookmarkRepo) ListBookmarks(_ context.Context, userID string) ([]model.Bookmark, error) {
	out := []model.Bookmark{}
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].UserID == userID {
			out = append(out, f.rows[i])
		}
	}
	return out, nil
}

func (f *fakeBookmarkRepo) IsBookmarked(_ context.Context, userID, recipeID string) (bool, error) {
	for _, b := range f.rows {
		if b.UserID == userID && b.RecipeID == recipeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBookmarkRepo) AddBookmark(ctx context.Context, userID, recipeID string) error {
	if ok, _ := f.IsBookmarked(ctx, userID, recipeID); ok {
		return nil
	}
	f.rows = append(f.rows, model.Bookmark{UserID: userID, RecipeID: recipeID, CreatedAt: time.Now()})
	return nil
}

func (f *fakeBookmarkRepo) RemoveBookmark(_ context.Context, userID, recipeID string) (bool, error) {
	for i, b := range f.rows {
		if b.UserID == userID && b.RecipeID == recipeID {
			f.rows = slices.Delete(f.rows, i, i+1)
			return true, nil
		}
	}
	return false, nil
}

// --- devices ---

type fakeDeviceRepo struct {
	devices   map[string]model.Device // keyed by userID/deviceID
	deleteErr error
	deleted   []string
}

func newFakeDeviceRepo() *fakeDeviceRepo {
	return &fakeDeviceRepo{devices: make(map[string]model.Device)}
}

func (f *fakeDeviceRepo) UpsertDevice(_ context.Context, d *model.Device) error {
	f.devices[d.UserID+"/"+d.DeviceID] = *d
	return nil
}

func (f *fakeDeviceRepo) DeleteDevice(_ context.Context, userID, deviceID string) error {
	f.deleted = append(f.deleted, userID+"/"+deviceID)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.devices, userID+"/"+deviceID)
	return nil
}

func (f *fakeDeviceRepo) ListDevicesByUser(_ context.Context, userID string) ([]model.Device, error) {
	out := []model.Device{}
	for _, d := range f.devices {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDeviceRepo) DeleteDevicesByToken(context.Context, string) (int64, error) { return 0, nil }
func (f *fakeDeviceRepo) DeleteStaleDevices(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// --- recipe API ---

type fakeRecipeAPI struct {
	mu          sync.Mutex
	found       []model.Recipe
	info        map[int]*spoonacular.Information
	bulk        []model.Recipe
	err         error
	searchCalls [][]string
	searchN     []int
	infoCalls   int
	bulkCalls   [][]int
}

func (f *fakeRecipeAPI) FindByIngredients(_ context.Context, ingredients []string, number int) ([]model.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls = append(f.searchCalls, ingredients)
	f.searchN = append(f.searchN, number)
	if f.err != nil {
		return nil, f.err
	}
	if f.found == nil {
		return []model.Recipe{}, nil
	}
	return f.found, nil
}

func (f *fakeRecipeAPI) Information(_ context.Context, id int) (*spoonacular.Information, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infoCalls++
	if f.err != nil {
		return nil, f.err
	}
	info, ok := f.info[id]
	if !ok {
		return nil, apperror.NotFound("recipe", fmt.Sprint(id))
	}
	return info, nil
}

func (f *fakeRecipeAPI) InformationBulk(_ context.Context, ids []int) ([]model.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulkCalls = append(f.bulkCalls, ids)
	if f.err != nil {
		return nil, f.err
	}
	return f.bulk, nil
}

// --- cache ---

type fakeCache struct {
	entries map[int]model.RecipeDetail
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[int]model.RecipeDetail)}
}

func (f *fakeCache) Get(_ context.Context, id int) (*model.RecipeDetail, bool) {
	d, ok := f.entries[id]
	if !ok {
		return nil, false
	}
	return &d, true
}

func (f *fakeCache) Set(_ context.Context, d *model.RecipeDetail) {
	f.entries[d.ID] = *d
}

// --- realtime ---

type publishedEvent struct {
	userID string
	event  model.PantryEvent
}

type fakePublisher struct {
	events []publishedEvent
}

func (f *fakePublisher) Publish(userID string, payload any) {
	f.events = append(f.events, publishedEvent{userID: userID, event: payload.(model.PantryEvent)})
}

// --- functions ---

type fakeAnalyzer struct {
	analysis    *functions.Analysis
	recipe      string
	err         error
	gotFilename string
	gotType     string
	gotBytes    string
	gotPrompt   string
}

func (f *fakeAnalyzer) AnalyzeImage(_ context.Context, image io.Reader, filename, contentType string) (*functions.Analysis, error) {
	data, _ := io.ReadAll(image)
	f.gotBytes, f.gotFilename, f.gotType = string(data), filename, contentType
	if f.err != nil {
		return nil, f.err
	}
	return f.analysis, nil
}

func (f *fakeAnalyzer) GenerateRecipe(_ context.Context, ingredients string) (string, error) {
	f.gotPrompt = ingredients
	if f.err != nil {
		return "", f.err
	}
	return f.recipe, nil
}

type fakeFetcher struct {
	image  *functions.Image
	err    error
	gotURL string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (*functions.Image, error) {
	f.gotURL = rawURL
	if f.err != nil {
		return nil, f.err
	}
	return f.image, nil
}
