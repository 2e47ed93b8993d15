package csv

import (
	"io"
	"reflect"
	"strings"
	"testing"
	"testing/iotest"
)

/* TestParseExtract verifies BOM stripping, null cells and skipped wide rows. */
func TestParseExtract(t *testing.T) {
	in := "\uFEFFProductID, Location ID ,Quantity,ModifiedDate\n" +
		"1,1, 408 ,2014-08-08\n" +
		"1,6,,2014-08-08\n" +
		"2,1,427,2014-08-08,extra\n" +
		"3,50,585,2014-08-08\n"
	p := NewParser(Options{TrimSpace: true})
	tb, skipped, err := p.Parse(strings.NewReader(in), "ProductInventory")
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 1 {
		t.Fatalf("skipped = %d, want 1", skipped)
	}
	if want := []string{"ProductID", "LocationID", "Quantity", "ModifiedDate"}; !reflect.DeepEqual(tb.Columns(), want) {
		t.Fatalf("columns = %v, want %v", tb.Columns(), want)
	}
	if tb.Len() != 3 || tb.Name() != "ProductInventory" {
		t.Fatalf("len=%d name=%s", tb.Len(), tb.Name())
	}
	if got := tb.Value(0, "Quantity"); got != "408" {
		t.Fatalf("Quantity[0] = %#v", got)
	}
	if got := tb.Value(1, "Quantity"); got != nil {
		t.Fatalf("empty cell = %#v, want nil", got)
	}
}

/* TestParseHeaderMapAndComma verifies delimiter and header mapping after folding. */
func TestParseHeaderMapAndComma(t *testing.T) {
	in := "Código;Nombre\n7;Chaîne\n"
	p := NewParser(Options{Comma: ';', HeaderMap: map[string]string{"Codigo": "ProductID", "Nombre": "Name"}})
	tb, _, err := p.Parse(strings.NewReader(in), "Product")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"ProductID", "Name"}; !reflect.DeepEqual(tb.Columns(), want) {
		t.Fatalf("columns = %v", tb.Columns())
	}
	if tb.Value(0, "Name") != "Chaîne" {
		t.Fatalf("values must not be folded: %v", tb.Value(0, "Name"))
	}
}

/* TestParseEmptyInput verifies a missing header is an error. */
func TestParseEmptyInput(t *testing.T) {
	if _, _, err := NewParser(Options{}).Parse(strings.NewReader(""), "Location"); err == nil {
		t.Fatal("expected error")
	}
}

/* TestCanonicalHeader verifies accent folding and space removal. */
func TestCanonicalHeader(t *testing.T) {
	tests := map[string]string{
		"Product ID":         "ProductID",
		" SafetyStockLevel ": "SafetyStockLevel",
		"Catégorie":          "Categorie",
		"":                   "",
	}
	for in, want := range tests {
		if got := CanonicalHeader(in); got != want {
			t.Errorf("CanonicalHeader(%q) = %q, want %q", in, got, want)
		}
	}
}

/*
TestStreamingRewriterAcrossReads verifies a pattern split across one-byte
reads is still replaced and nothing else changes.
*/
func TestStreamingRewriterAcrossReads(t *testing.T) {
	in := `1,"HL Road Frame Â Black",58` + "\n" + `2,"Â Â ",0`
	r := newStreamingRewriter(iotest.OneByteReader(strings.NewReader(in)), []byte("Â "), []byte(" "))
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	want := `1,"HL Road Frame  Black",58` + "\n" + `2,"  ",0`
	if string(got) != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

/* TestParseScrub verifies scrub rules run before the CSV reader. */
func TestParseScrub(t *testing.T) {
	in := "ScrapReasonID,Name\n1,\"Paint \"\"process\"\" failed\"\"\n"
	p := NewParser(Options{Scrub: []Replacement{{From: `failed""`, To: `failed"`}}})
	tb, skipped, err := p.Parse(strings.NewReader(in), "ScrapReason")
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 0 || tb.Len() != 1 {
		t.Fatalf("skipped=%d len=%d", skipped, tb.Len())
	}
	if got := tb.Value(0, "Name"); got != `Paint "process" failed` {
		t.Fatalf("Name = %q", got)
	}
}
