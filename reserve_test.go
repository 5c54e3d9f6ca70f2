package main

import (
	"context"
	"strings"
	"testing"
)

const itemPage = `<html><head><title>Test Phone 128GB</title></head><body></body></html>`

func TestSkuTitle(t *testing.T) {
	fake := newFakeClient(t, fakeResponse{200, itemPage})
	jc := newTestClient(t, fake)

	title, err := jc.SkuTitle()
	if err != nil {
		t.Fatalf("SkuTitle: %v", err)
	}
	if title != "Test Phone 128GB" {
		t.Errorf("title = %q, want Test Phone 128GB", title)
	}
	if got := fake.requests[0].URL.String(); !strings.Contains(got, jc.cfg.SkuID) {
		t.Errorf("item request %s does not contain the SKU", got)
	}
}

func TestSkuTitleEmptyPage(t *testing.T) {
	fake := newFakeClient(t, fakeResponse{200, "<html><head></head></html>"})
	jc := newTestClient(t, fake)

	if _, err := jc.SkuTitle(); err == nil {
		t.Fatal("expected error for a page with no title")
	}
}

func TestMakeReserve(t *testing.T) {
	fake := newFakeClient(t,
		fakeResponse{200, itemPage},
		fakeResponse{200, `fetchJSON({"url":"//yushou.jd.com/toYuyue.action?sku=100012043978&key=abc"})`},
		fakeResponse{200, `<html>reserved</html>`},
	)
	jc := newTestClient(t, fake)

	if err := jc.MakeReserve(context.Background()); err != nil {
		t.Fatalf("MakeReserve: %v", err)
	}

	last := fake.requests[len(fake.requests)-1]
	if last.URL.Scheme != "https" || last.URL.Host != "yushou.jd.com" {
		t.Errorf("reservation hit %s://%s, want https://yushou.jd.com", last.URL.Scheme, last.URL.Host)
	}
}

func TestMakeReserveMissingURL(t *testing.T) {
	fake := newFakeClient(t,
		fakeResponse{200, itemPage},
		fakeResponse{200, `fetchJSON({})`},
	)
	jc := newTestClient(t, fake)

	if err := jc.MakeReserve(context.Background()); err == nil {
		t.Fatal("expected error when the descriptor has no url")
	}
}
