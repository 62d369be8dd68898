// Package nodes содержит обработчики типов узлов workflow.
//
// Каждый тип узла (http, if, batch, chat, ...) реализует интерфейс
// Handler. Реестр Registry сопоставляет тип узла обработчику; для
// незнакомых типов возвращается мягкий default-обработчик.
//
// Обработчики получают уже расшифрованную конфигурацию и контекст
// выполнения; ветвящиеся узлы обходят downstream-связи сами через
// Request.Downstream и сигнализируют об этом SignalHandledDownstream.
package nodes
