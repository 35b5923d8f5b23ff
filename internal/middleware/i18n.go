// internal/middleware/i18n.go
package middleware

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"github.com/javajoker/rfp-backend/internal/i18n"
)

var (
	supportedTags = []language.Tag{
		language.English, // first tag is the fallback
		language.Spanish,
	}
	langMatcher = language.NewMatcher(supportedTags)
)

// I18nMiddleware stores the best supported catalog for Accept-Language
// under "lang".
func I18nMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("lang", matchLanguage(c.GetHeader("Accept-Language")))
		c.Next()
	}
}

func matchLanguage(header string) string {
	if header == "" {
		return i18n.DefaultLang
	}

	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return i18n.DefaultLang
	}

	_, index, confidence := langMatcher.Match(tags...)
	if confidence == language.No {
		return i18n.DefaultLang
	}

	base, _ := supportedTags[index].Base()
	lang := base.String()
	if !i18n.IsSupported(lang) {
		return i18n.DefaultLang
	}
	return lang
}
