// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package rwpm

import (
	"encoding/json"
	"testing"
)

type multiStringStruct struct {
	Ms MultiString `json:"ms"`
}

func TestMultiString(t *testing.T) {
	var obj multiStringStruct

	const single = `{"ms":"single"}`
	if err := json.Unmarshal([]byte(single), &obj); err != nil {
		t.Fatal(err)
	}
	if len(obj.Ms) != 1 || obj.Ms[0] != "single" {
		t.Errorf("Expected one value named single, got %#v", obj.Ms)
	}
	jstring, err := json.Marshal(obj)
	if err != nil {
		t.Fatal(err)
	}
	if string(jstring) != single {
		t.Errorf("Expected string equality, got %#v", string(jstring))
	}

	const multiple = `{"ms":["cover","contents"]}`
	if err := json.Unmarshal([]byte(multiple), &obj); err != nil {
		t.Fatal(err)
	}
	jstring, err = json.Marshal(obj)
	if err != nil {
		t.Fatal(err)
	}
	if string(jstring) != multiple {
		t.Errorf("Expected string equality, got %#v", string(jstring))
	}
}

type multiLanguageStruct struct {
	Ml MultiLanguage `json:"ml"`
}

func TestMultiLanguage(t *testing.T) {
	var obj multiLanguageStruct

	const single = `{"ml":"literal"}`
	if err := json.Unmarshal([]byte(single), &obj); err != nil {
		t.Fatal(err)
	}
	if obj.Ml.String() != "literal" {
		t.Errorf("Expected 'literal', got %#v", obj.Ml)
	}
	jstring, err := json.Marshal(obj)
	if err != nil {
		t.Fatal(err)
	}
	if string(jstring) != single {
		t.Errorf("Expected string equality, got %#v", string(jstring))
	}

	obj = multiLanguageStruct{}
	const multiple = `{"ml":{"en":"name","fr":"nom"}}`
	if err := json.Unmarshal([]byte(multiple), &obj); err != nil {
		t.Fatal(err)
	}
	if obj.Ml.MultiString["fr"] != "nom" {
		t.Errorf("Expected 'nom', got %#v", obj.Ml.MultiString["fr"])
	}
	if obj.Ml.String() != "name" {
		t.Errorf("Expected the first language value, got %s", obj.Ml.String())
	}
	jstring, err = json.Marshal(obj)
	if err != nil {
		t.Fatal(err)
	}
	if string(jstring) != multiple {
		t.Errorf("Expected string equality, got %#v", string(jstring))
	}
}

func TestContributors(t *testing.T) {
	var m Metadata
	if err := json.Unmarshal([]byte(`{"title":"t","author":"Alice","translator":[{"name":"Bob","sortAs":"B"},"Carol"]}`), &m); err != nil {
		t.Fatal(err)
	}
	if len(m.Author) != 1 || m.Author[0].Name.String() != "Alice" {
		t.Errorf("unexpected author %#v", m.Author)
	}
	if len(m.Translator) != 2 || m.Translator[0].SortAs != "B" || m.Translator[1].Name.String() != "Carol" {
		t.Errorf("unexpected translators %#v", m.Translator)
	}

	out, err := json.Marshal(m.Translator)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `[{"name":"Bob","sortAs":"B"},{"name":"Carol"}]` {
		t.Errorf("unexpected json %s", out)
	}
	out, err = json.Marshal(m.Author)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"name":"Alice"}` {
		t.Errorf("unexpected json %s", out)
	}
}
