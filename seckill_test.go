package main

import (
	"context"
	"testing"
)

func TestRewriteSeckillURL(t *testing.T) {
	tests := []struct {
		name    string
		routing string
		want    string
	}{
		{
			"routing link",
			"//divide.jd.com/user_routing?skuId=8654289&sn=c3f4ececd8461f0e4d7267&from=pc",
			"https://marathon.jd.com/captcha.html?skuId=8654289&sn=c3f4ececd8461f0e4d7267&from=pc",
		},
		{
			"already rewritten",
			"https://marathon.jd.com/captcha.html?skuId=8654289&from=pc",
			"https://marathon.jd.com/captcha.html?skuId=8654289&from=pc",
		},
		{
			"unrelated host and path pass through",
			"//item.jd.com/seckill.action?skuId=1",
			"https://item.jd.com/seckill.action?skuId=1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rewriteSeckillURL(tt.routing)
			if err != nil {
				t.Fatalf("rewriteSeckillURL: %v", err)
			}
			if got != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestDiscoverSeckillURL(t *testing.T) {
	fake := newFakeClient(t,
		fakeResponse{503, ""},
		fakeResponse{200, `jQuery1234567({"url":""})`},
		fakeResponse{200, `jQuery1234567({"url":"//divide.jd.com/user_routing?skuId=100012043978&sn=abc&from=pc"})`},
	)
	jc := newTestClient(t, fake)

	got, err := jc.DiscoverSeckillURL(context.Background())
	if err != nil {
		t.Fatalf("DiscoverSeckillURL: %v", err)
	}
	want := "https://marathon.jd.com/captcha.html?skuId=100012043978&sn=abc&from=pc"
	if got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
	if len(fake.requests) != 3 {
		t.Errorf("requests = %d, want 3", len(fake.requests))
	}
}

const initInfoBody = `{
	"addressList": [{
		"id": 138356479,
		"name": "Zhang San",
		"provinceId": 1,
		"cityId": 72,
		"countyId": 4137,
		"townId": 0,
		"addressDetail": "Chaoyang District",
		"mobile": "138****1234",
		"mobileKey": "mk-1",
		"email": ""
	}],
	"invoiceInfo": {},
	"token": "tok-83f2"
}`

func TestFetchInitInfoRetries(t *testing.T) {
	fake := newFakeClient(t,
		fakeResponse{503, ""},
		fakeResponse{200, "null"},
		fakeResponse{200, initInfoBody},
	)
	jc := newTestClient(t, fake)

	info, err := jc.FetchInitInfo(context.Background())
	if err != nil {
		t.Fatalf("FetchInitInfo: %v", err)
	}
	if got := info.Get("token").String(); got != "tok-83f2" {
		t.Errorf("token = %q, want tok-83f2", got)
	}
	if len(fake.requests) != 3 {
		t.Errorf("requests = %d, want 3", len(fake.requests))
	}
}

func TestFetchInitInfoExhausted(t *testing.T) {
	fake := newFakeClient(t,
		fakeResponse{200, "null"},
		fakeResponse{200, "null"},
		fakeResponse{200, "null"},
	)
	jc := newTestClient(t, fake)

	if _, err := jc.FetchInitInfo(context.Background()); err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
}

func TestBuildOrderDataNoInvoice(t *testing.T) {
	jc := newTestClient(t, newFakeClient(t))
	info := DecodeBody([]byte(initInfoBody))
	if info.Kind != DecodeParsed {
		t.Fatalf("test body did not parse")
	}

	data, err := jc.BuildOrderData(info.JSON)
	if err != nil {
		t.Fatalf("BuildOrderData: %v", err)
	}
	checks := map[string]string{
		"skuId":          "100012043978",
		"num":            "1",
		"addressId":      "138356479",
		"yuShou":         "true",
		"invoice":        "false",
		"invoiceTitle":   "-1",
		"invoiceContent": "1",
		"paymentType":    "4",
		"codTimeType":    "3",
		"token":          "tok-83f2",
		"eid":            "test-eid",
		"fp":             "test-fp",
	}
	for key, want := range checks {
		if got := data.Get(key); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
}

func TestBuildOrderDataWithInvoice(t *testing.T) {
	jc := newTestClient(t, newFakeClient(t))
	body := `{
		"addressList": [{"id": 1, "name": "n"}],
		"invoiceInfo": {"invoiceTitle": 4, "invoiceContentType": 1, "invoicePhone": "139", "invoicePhoneKey": "pk"},
		"token": "tok"
	}`
	info := DecodeBody([]byte(body))

	data, err := jc.BuildOrderData(info.JSON)
	if err != nil {
		t.Fatalf("BuildOrderData: %v", err)
	}
	if got := data.Get("invoice"); got != "true" {
		t.Errorf("invoice = %q, want true", got)
	}
	if got := data.Get("invoiceTitle"); got != "4" {
		t.Errorf("invoiceTitle = %q, want 4", got)
	}
	if got := data.Get("invoicePhone"); got != "139" {
		t.Errorf("invoicePhone = %q, want 139", got)
	}
}

func TestBuildOrderDataMissingToken(t *testing.T) {
	jc := newTestClient(t, newFakeClient(t))
	info := DecodeBody([]byte(`{"addressList":[{"id":1}],"token":""}`))
	if _, err := jc.BuildOrderData(info.JSON); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestBuildOrderDataMissingAddress(t *testing.T) {
	jc := newTestClient(t, newFakeClient(t))
	info := DecodeBody([]byte(`{"addressList":[],"token":"tok"}`))
	if _, err := jc.BuildOrderData(info.JSON); err == nil {
		t.Fatal("expected error for empty address list")
	}
}

func TestSubmitSeckillOrder(t *testing.T) {
	fake := newFakeClient(t,
		fakeResponse{200, initInfoBody},
		fakeResponse{200, `{"success":false,"resultCode":90016,"errorMessage":"too many people"}`},
		fakeResponse{200, "null"},
		fakeResponse{200, `{"success":true,"orderId":820712345,"totalMoney":"99.00","pcUrl":"//pay.jd.com/order/820712345"}`},
	)
	jc := newTestClient(t, fake)

	order, err := jc.SubmitSeckillOrder(context.Background())
	if err != nil {
		t.Fatalf("SubmitSeckillOrder: %v", err)
	}
	if order == nil {
		t.Fatal("order = nil, want a result")
	}
	if order.OrderID != 820712345 {
		t.Errorf("OrderID = %d, want 820712345", order.OrderID)
	}
	if order.TotalMoney != "99.00" {
		t.Errorf("TotalMoney = %q, want 99.00", order.TotalMoney)
	}
	if want := "https://pay.jd.com/order/820712345"; order.PayURL != want {
		t.Errorf("PayURL = %q, want %q", order.PayURL, want)
	}
}

func TestSubmitSeckillOrderExhausted(t *testing.T) {
	fake := newFakeClient(t,
		fakeResponse{200, initInfoBody},
		fakeResponse{200, "null"},
		fakeResponse{200, "null"},
		fakeResponse{200, "null"},
	)
	jc := newTestClient(t, fake)

	order, err := jc.SubmitSeckillOrder(context.Background())
	if err != nil {
		t.Fatalf("SubmitSeckillOrder: %v", err)
	}
	if order != nil {
		t.Errorf("order = %+v, want nil", order)
	}
}
