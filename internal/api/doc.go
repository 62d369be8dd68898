// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go           — Handler с DI (репозитории, планировщик, logger)
//   - routes.go            — регистрация маршрутов
//   - middleware.go        — middleware (logging, recovery)
//   - response.go          — унифицированные JSON-ответы и обработка ошибок
//   - dto.go               — Data Transfer Objects (request/response)
//   - workflow_handler.go  — CRUD workflow и операции планировщика
//   - execution_handler.go — запуски (execute, webhook, история)
//
// API предоставляет REST endpoints для управления workflow, активацией,
// test mode и просмотром запусков.
package api
