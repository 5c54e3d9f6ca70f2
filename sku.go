package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	http "github.com/bogdanfinn/fhttp"
)

// SkuTitle loads the product page and returns its <title> text.
func (jc *JdClient) SkuTitle() (string, error) {
	req, err := http.NewRequest(http.MethodGet, jc.itemURL(), nil)
	if err != nil {
		return "", err
	}
	jc.jdHeaders(req, "")

	resp, err := jc.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if !respOK(resp.StatusCode) {
		return "", fmt.Errorf("item page returned %d", resp.StatusCode)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return "", fmt.Errorf("item page has no title")
	}
	return title, nil
}
