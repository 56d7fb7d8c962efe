package services

import (
	"strings"
	"testing"

	validatorv10 "github.com/go-playground/validator/v10"
)

func Test_mustValidator(t *testing.T) {
	v := mustValidator(customTags)
	if err := v.Var("  ", "notblank_trim"); err == nil {
		t.Fatal("blank value passed notblank_trim")
	}
	if err := v.Var("ada@example.com", "basic_email"); err != nil {
		t.Fatalf("basic_email rejected a valid address: %v", err)
	}
}

func Test_mustValidator_PanicsOnBadTag(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for an unregistrable tag")
		}
		if msg, _ := r.(string); !strings.Contains(msg, "register validation") {
			t.Fatalf("panic = %v", r)
		}
	}()
	mustValidator(map[string]validatorv10.Func{"": func(validatorv10.FieldLevel) bool { return true }})
}
