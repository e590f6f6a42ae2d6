package i18n_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/aitrainer/internal/i18n"
	"github.com/myrjola/aitrainer/internal/trainer"
)

func TestLocalesDefineTheSameKeys(t *testing.T) {
	want := i18n.Keys(i18n.DefaultLanguage)
	if len(want) == 0 {
		t.Fatal("default locale has no keys")
	}
	for _, lang := range i18n.SupportedLanguages() {
		if diff := cmp.Diff(want, i18n.Keys(lang)); diff != "" {
			t.Errorf("keys of %s differ from %s (-want +got):\n%s", lang, i18n.DefaultLanguage, diff)
		}
	}
}

func labelKeys[T ~string](c trainer.Catalog[T]) []string {
	keys := make([]string, 0, len(c.Values))
	for _, v := range c.Values {
		keys = append(keys, c.LabelKey(v))
	}
	return keys
}

func TestCatalogLabelsAreTranslated(t *testing.T) {
	var keys []string
	keys = append(keys, labelKeys(trainer.Genders)...)
	keys = append(keys, labelKeys(trainer.UnitSystems)...)
	keys = append(keys, labelKeys(trainer.Goals)...)
	keys = append(keys, labelKeys(trainer.Intensities)...)
	keys = append(keys, labelKeys(trainer.BMIBands)...)
	keys = append(keys, labelKeys(trainer.Conditions)...)
	keys = append(keys, labelKeys(trainer.BodyParts)...)
	keys = append(keys, labelKeys(trainer.Restrictions)...)
	keys = append(keys, labelKeys(trainer.CookingLevels)...)
	keys = append(keys, labelKeys(trainer.Exercises)...)
	keys = append(keys, labelKeys(trainer.EquipmentItems)...)
	keys = append(keys, labelKeys(trainer.Tastes)...)
	keys = append(keys, labelKeys(trainer.Ingredients)...)
	keys = append(keys, labelKeys(trainer.PlanStyles)...)
	for _, step := range trainer.Steps {
		keys = append(keys, "step."+step.String())
	}

	for _, lang := range i18n.SupportedLanguages() {
		for _, key := range keys {
			if got := i18n.Translate(lang, key); got == key {
				t.Errorf("Translate(%s, %q) is untranslated", lang, key)
			}
		}
	}
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		lang i18n.Language
		key  string
		want string
	}{
		{name: "english", lang: i18n.English, key: "wizard.next", want: "Next"},
		{name: "chinese", lang: i18n.Chinese, key: "wizard.next", want: "下一步"},
		{name: "unsupported language falls back to english", lang: "fi", key: "wizard.back", want: "Back"},
		{name: "unknown key returns the key", lang: i18n.Chinese, key: "no.such.key", want: "no.such.key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := i18n.Translate(tt.lang, tt.key); got != tt.want {
				t.Errorf("Translate(%q, %q) = %q, want %q", tt.lang, tt.key, got, tt.want)
			}
		})
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		header string
		want   i18n.Language
	}{
		{header: "", want: i18n.English},
		{header: "zh-CN,zh;q=0.9,en;q=0.8", want: i18n.Chinese},
		{header: "fi-FI, en-US;q=0.7", want: i18n.English},
		{header: "fr, de", want: i18n.DefaultLanguage},
		{header: " ZH ", want: i18n.Chinese},
	}
	for _, tt := range tests {
		if got := i18n.Match(tt.header); got != tt.want {
			t.Errorf("Match(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
