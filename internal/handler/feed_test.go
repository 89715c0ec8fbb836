package handler_test

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/appdotbuilder/golden-timeline/internal/handler"
	"github.com/appdotbuilder/golden-timeline/internal/service"
)

func TestFeed_RendersActivePosts(t *testing.T) {
	env := newTestEnv(t, handler.RateLimits{})
	userID, _ := env.registerAndLogin(t, "feed@example.com")

	in := service.CreatePostInput{
		Title:       "Harbour at dawn",
		Description: "Boats & gulls",
		ImageURL:    "https://example.com/h.jpg",
		Category:    "art",
		Country:     "Norway",
		City:        "Bergen",
		CreditsCost: 2,
	}
	if _, err := env.posts.CreatePost(context.Background(), userID, in); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	resp := env.do(t, http.MethodGet, "/", "", nil)
	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected html, got %s", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	page := string(body)
	for _, want := range []string{"Harbour at dawn", "Boats &amp; gulls", `<option value="Norway">Norway</option>`, `id="load-more"`} {
		if !strings.Contains(page, want) {
			t.Errorf("feed missing %q", want)
		}
	}

	resp = env.do(t, http.MethodGet, "/?country=Peru", "", nil)
	body, _ = io.ReadAll(resp.Body)
	if strings.Contains(string(body), "Harbour at dawn") {
		t.Fatal("filtered feed should not contain the post")
	}

	expectStatus(t, env.do(t, http.MethodGet, "/?category=weather", "", nil), http.StatusBadRequest)
}

func TestFeed_LoadMoreStreamsSSE(t *testing.T) {
	env := newTestEnv(t, handler.RateLimits{})
	ctx := context.Background()
	userID, _ := env.registerAndLogin(t, "more@example.com")
	if _, err := env.db.Ledger().SetBalance(ctx, userID, 100, t0); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}

	for i := 0; i < 21; i++ {
		in := service.CreatePostInput{
			Title:       "Post " + strconv.Itoa(i),
			Description: "d",
			ImageURL:    "https://example.com/p.jpg",
			Category:    "food",
			Country:     "Italy",
			City:        "Rome",
			CreditsCost: 1,
		}
		if _, err := env.posts.CreatePost(ctx, userID, in); err != nil {
			t.Fatalf("CreatePost %d: %v", i, err)
		}
		env.clock.Advance(time.Second)
	}

	resp := env.do(t, http.MethodGet, "/", "", nil)
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "/feed/more?offset=20") {
		t.Fatal("first page should offer a load-more control")
	}
	if strings.Contains(string(body), ">Post 0<") {
		t.Fatal("oldest post should not be on the first page")
	}

	resp = env.do(t, http.MethodGet, "/feed/more?offset=20", "", nil)
	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("expected event stream, got %s", ct)
	}
	body, _ = io.ReadAll(resp.Body)
	stream := string(body)
	for _, want := range []string{"datastar-patch-elements", "Post 0", "post-list", `<div id="load-more"></div>`} {
		if !strings.Contains(stream, want) {
			t.Errorf("stream missing %q:\n%s", want, stream)
		}
	}
}
