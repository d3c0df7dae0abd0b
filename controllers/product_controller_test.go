package controllers_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"compareeconomize/backend/models"
)

func (e *testEnv) upload(path, token, filename, content string) *httptest.ResponseRecorder {
	e.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		e.t.Fatal(err)
	}
	fw.Write([]byte(content))
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return e.serve(req)
}

func TestUpsertProductRequiresBusinessAccount(t *testing.T) {
	e := newEnv(t)
	shopper, _ := e.register("shopper@x.com", "user")
	shop, _ := e.register("shop@x.com", "business")
	admin, _ := e.register("admin@x.com", "user")

	if w := e.do(http.MethodPost, "/api/products", gin.H{"name": "Arroz"}, shopper); w.Code != http.StatusForbidden {
		t.Fatalf("shopper: %d", w.Code)
	}
	if w := e.do(http.MethodPost, "/api/products", gin.H{"name": "Arroz"}, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: %d", w.Code)
	}

	w := e.do(http.MethodPost, "/api/products", gin.H{"name": " Arroz "}, shop)
	var p models.Product
	decode(t, w, &p)
	if w.Code != http.StatusOK || p.ID == "" || p.Name != "Arroz" {
		t.Fatalf("generated id: %d %+v", w.Code, p)
	}

	w = e.do(http.MethodPost, "/api/products", gin.H{"id": "feijao", "name": "Feijão", "unit": "kg"}, admin)
	decode(t, w, &p)
	if p.ID != "feijao" || p.Unit == nil || *p.Unit != "kg" {
		t.Fatalf("explicit id: %+v", p)
	}
	e.do(http.MethodPost, "/api/products", gin.H{"id": "feijao", "name": "Feijão carioca"}, admin)

	var list []models.Product
	decode(t, e.do(http.MethodGet, "/api/products", nil, ""), &list)
	if len(list) != 2 {
		t.Fatalf("products: %+v", list)
	}
	for _, item := range list {
		if item.ID == "feijao" && item.Name != "Feijão carioca" {
			t.Fatalf("upsert did not update name: %+v", item)
		}
	}
}

func TestPricesAndOffers(t *testing.T) {
	e := newEnv(t)
	owner, _ := e.register("owner@x.com", "business")
	other, _ := e.register("other@x.com", "business")
	b := e.createBusiness(owner, "Padaria")
	m1 := e.createMarket(owner, b.ID, "Loja Cara")
	m2 := e.createMarket(owner, b.ID, "Loja Barata")
	e.do(http.MethodPost, "/api/products", gin.H{"id": "arroz", "name": "Arroz"}, owner)

	cases := []struct {
		name   string
		body   gin.H
		token  string
		status int
	}{
		{"unknown market", gin.H{"marketId": "nope", "productId": "arroz", "price": 1}, owner, http.StatusBadRequest},
		{"unknown product", gin.H{"marketId": m1.ID, "productId": "nope", "price": 1}, owner, http.StatusBadRequest},
		{"zero price", gin.H{"marketId": m1.ID, "productId": "arroz", "price": 0}, owner, http.StatusBadRequest},
		{"stranger", gin.H{"marketId": m1.ID, "productId": "arroz", "price": 1}, other, http.StatusForbidden},
	}
	for _, tc := range cases {
		if w := e.do(http.MethodPost, "/api/prices", tc.body, tc.token); w.Code != tc.status {
			t.Errorf("%s: got %d want %d", tc.name, w.Code, tc.status)
		}
	}

	var first, again models.Price
	decode(t, e.do(http.MethodPost, "/api/prices", gin.H{"marketId": m1.ID, "productId": "arroz", "price": 9.5}, owner), &first)
	decode(t, e.do(http.MethodPost, "/api/prices", gin.H{"marketId": m1.ID, "productId": "arroz", "price": 8.75}, owner), &again)
	if first.ID != again.ID || again.Price != 8.75 {
		t.Fatalf("upsert should update in place: %+v %+v", first, again)
	}
	e.do(http.MethodPost, "/api/prices", gin.H{"marketId": m2.ID, "productId": "arroz", "price": 6.1}, owner)

	var offers []models.Offer
	decode(t, e.do(http.MethodGet, "/api/products/arroz/prices", nil, ""), &offers)
	if len(offers) != 2 || offers[0].MarketName != "Loja Barata" || offers[1].Price != 8.75 {
		t.Fatalf("offers: %+v", offers)
	}
	if w := e.do(http.MethodGet, "/api/products/nope/prices", nil, ""); w.Code != http.StatusNotFound {
		t.Fatalf("unknown product offers: %d", w.Code)
	}

	var prices []models.Price
	decode(t, e.do(http.MethodGet, "/api/prices?marketId="+m2.ID, nil, ""), &prices)
	if len(prices) != 1 || prices[0].Price != 6.1 {
		t.Fatalf("filtered prices: %+v", prices)
	}
}

func TestImportPricesCSV(t *testing.T) {
	e := newEnv(t)
	owner, _ := e.register("owner@x.com", "business")
	other, _ := e.register("other@x.com", "business")
	b := e.createBusiness(owner, "Padaria")
	m := e.createMarket(owner, b.ID, "Loja")
	e.do(http.MethodPost, "/api/products", gin.H{"id": "arroz", "name": "Arroz"}, owner)
	e.do(http.MethodPost, "/api/products", gin.H{"id": "leite", "name": "Leite"}, owner)

	csv := "produto;preço\narroz;3,50\n;2\nleite;abc\nghost;1,00\nleite;4\n"
	path := "/api/markets/" + m.ID + "/prices/import"

	if w := e.upload(path, other, "prices.csv", csv); w.Code != http.StatusForbidden {
		t.Fatalf("stranger: %d", w.Code)
	}
	if w := e.upload(path, owner, "prices.txt", csv); w.Code != http.StatusBadRequest {
		t.Fatalf("unsupported extension: %d", w.Code)
	}
	if w := e.upload(path, owner, "prices.csv", "nome;valor\nx;1\n"); w.Code != http.StatusBadRequest {
		t.Fatalf("missing product column: %d", w.Code)
	}

	w := e.upload(path, owner, "prices.csv", csv)
	if w.Code != http.StatusOK {
		t.Fatalf("import: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		Imported int `json:"imported"`
		Skipped  []struct {
			Row    int    `json:"row"`
			Reason string `json:"reason"`
		} `json:"skipped"`
	}
	decode(t, w, &resp)
	if resp.Imported != 2 {
		t.Fatalf("imported %d", resp.Imported)
	}
	want := []struct {
		row    int
		reason string
	}{{3, "missing product"}, {4, "invalid price"}, {5, "unknown product"}}
	if len(resp.Skipped) != len(want) {
		t.Fatalf("skipped: %+v", resp.Skipped)
	}
	for i, s := range want {
		if resp.Skipped[i].Row != s.row || resp.Skipped[i].Reason != s.reason {
			t.Errorf("skipped[%d] = %+v, want %+v", i, resp.Skipped[i], s)
		}
	}

	var prices []models.Price
	decode(t, e.do(http.MethodGet, "/api/prices?marketId="+m.ID, nil, ""), &prices)
	if len(prices) != 2 {
		t.Fatalf("prices after import: %+v", prices)
	}
}

func TestImportPricesRejectsOversizeFile(t *testing.T) {
	e := newEnv(t)
	owner, _ := e.register("owner@x.com", "business")
	b := e.createBusiness(owner, "Padaria")
	m := e.createMarket(owner, b.ID, "Loja")
	e.do(http.MethodPost, "/api/products", gin.H{"id": "arroz", "name": "Arroz"}, owner)

	var csv strings.Builder
	csv.WriteString("product_id,price\n")
	filler := "arroz," + strings.Repeat(" ", 200) + "1\n"
	for csv.Len() < 5<<20-10 {
		csv.WriteString(filler)
	}
	csv.WriteString("arroz,1234.56\n")

	w := e.upload("/api/markets/"+m.ID+"/prices/import", owner, "prices.csv", csv.String())
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status %d %s", w.Code, w.Body.String())
	}
	var prices []models.Price
	decode(t, e.do(http.MethodGet, "/api/prices?marketId="+m.ID, nil, ""), &prices)
	if len(prices) != 0 {
		t.Fatalf("oversize upload stored prices: %+v", prices)
	}
}
