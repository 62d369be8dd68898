// Package runner реализует движок выполнения workflow.
//
// Запуск — это синхронный DFS-обход графа от стартовых узлов. Результат
// каждого узла вливается в копию контекста ветки; первая ошибка узла
// прерывает запуск (fail-fast). Состояние запуска пишется в хранилище
// инкрементально после каждого узла.
package runner
