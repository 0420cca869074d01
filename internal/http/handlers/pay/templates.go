package pay

import "html/template"

// pageData данные страницы оплаты.
type pageData struct {
	AmountRub  int64
	Currency   string
	SuccessURL string
	FailURL    string
}

var payPageTmpl = template.Must(template.New("pay").Parse(`<!DOCTYPE html>
<html lang="ru">
<head>
<meta charset="utf-8">
<title>Оплата подписки</title>
</head>
<body>
<h1>Оплата подписки</h1>
<p>Сумма к оплате: {{.AmountRub}} {{.Currency}}</p>
<p><a href="{{.SuccessURL}}">Оплатить</a></p>
<p><a href="{{.FailURL}}">Отменить</a></p>
</body>
</html>
`))

var resultTmpl = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html lang="ru">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
</body>
</html>
`))

// resultData данные страницы результата оплаты.
type resultData struct {
	Title   string
	Message string
}
