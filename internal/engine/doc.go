// Package engine содержит примитивы выполнения workflow-графа.
//
// Включает:
//   - context.go  — плоский контекст выполнения с additive-only merge
//   - template.go — интерполяция плейсхолдеров {{ имя }}
//   - eval.go     — ограниченный вычислитель выражений для условий
//   - graph.go    — валидация графа и определение стартовых узлов
//
// Сам обход графа живёт в пакете runner: engine отвечает за понимание
// структуры графа и данных, runner — за side effects и порядок посещения.
package engine
