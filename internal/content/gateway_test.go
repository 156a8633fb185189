package content

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/cmsshowcase/internal/model"
)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	return NewGateway(
		newTestDrupalSource(t, unreachableURL()),
		newTestWordPressSource(t, unreachableURL(), ""),
	)
}

func TestGateway_RoutesByPlatform(t *testing.T) {
	g := newTestGateway(t)
	ctx := context.Background()

	drupal, err := g.ListArticles(ctx, model.PlatformDrupal, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(drupal) == 0 || drupal[0].Source != model.PlatformDrupal {
		t.Errorf("drupal articles = %+v", drupal)
	}

	wp, err := g.ListEvents(ctx, model.PlatformWordPress, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(wp) != 2 || wp[0].Source != model.PlatformWordPress {
		t.Errorf("wordpress events = %+v", wp)
	}
}

func TestGateway_UnknownPlatform(t *testing.T) {
	g := newTestGateway(t)

	_, err := g.ListArticles(context.Background(), model.Platform("joomla"), 10)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUnknownPlatform {
		t.Errorf("err = %v, want UNKNOWN_PLATFORM", err)
	}
}

// TestGateway_GetByID_NotFound は見つからない場合にCONTENT_NOT_FOUNDを返すことを検証する。
func TestGateway_GetByID_NotFound(t *testing.T) {
	g := newTestGateway(t)

	_, err := g.GetByID(context.Background(), model.PlatformDrupal, model.ContentKindEvent, "999")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeContentNotFound {
		t.Errorf("err = %v, want CONTENT_NOT_FOUND", err)
	}

	item, err := g.GetByID(context.Background(), model.PlatformWordPress, model.ContentKindEvent, "202")
	if err != nil || item == nil || item.Title != "REST API Masterclass" {
		t.Errorf("GetByID(202) = %+v, %v", item, err)
	}
}
