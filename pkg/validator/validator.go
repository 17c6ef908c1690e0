package validator

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	zhTranslations "github.com/go-playground/validator/v10/translations/zh"
)

var (
	once sync.Once
	// Trans 全局翻译器
	Trans ut.Translator
)

// LazyInitGinValidator 替换gin默认validator的错误翻译
func LazyInitGinValidator(language string) {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		enLoc := en.New()
		zhLoc := zh.New()
		uni := ut.New(enLoc, enLoc, zhLoc)

		switch language {
		case "zh":
			Trans, _ = uni.GetTranslator("zh")
			_ = zhTranslations.RegisterDefaultTranslations(v, Trans)
		default:
			Trans, _ = uni.GetTranslator("en")
			_ = enTranslations.RegisterDefaultTranslations(v, Trans)
		}
	})
}

// Translate 把验证错误翻译成一条可读信息
func Translate(err error) string {
	if err == nil {
		return ""
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok || Trans == nil {
		return err.Error()
	}
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Translate(Trans))
	}
	return strings.Join(msgs, "; ")
}
