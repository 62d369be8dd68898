package engine

// Context — плоский контекст выполнения: имя переменной → значение.
//
// Контекст накапливается сверху вниз по одной ветке обхода: результат
// каждого узла вливается в копию родительского контекста перед передачей
// downstream. Сёстры-ветки после развилки не видят дополнений друг друга —
// каждая получает свою копию контекста общего предка.
type Context map[string]any

// NewContext создаёт контекст из начальных значений.
func NewContext(initial map[string]any) Context {
	ctx := make(Context, len(initial))
	for k, v := range initial {
		ctx[k] = v
	}
	return ctx
}

// Clone возвращает поверхностную копию контекста.
func (c Context) Clone() Context {
	clone := make(Context, len(c))
	for k, v := range c {
		clone[k] = v
	}
	return clone
}

// Merge возвращает новый контекст: копия c плюс значения fragment.
// Ни c, ни fragment не мутируются — это основа изоляции веток.
func (c Context) Merge(fragment map[string]any) Context {
	merged := c.Clone()
	for k, v := range fragment {
		merged[k] = v
	}
	return merged
}

// Lookup возвращает значение переменной и признак её наличия.
func (c Context) Lookup(name string) (any, bool) {
	v, ok := c[name]
	return v, ok
}

// TriggerKey — служебный ключ контекста с типом триггера, запустившего
// выполнение (например "webhook_trigger"). Движок использует его для
// выбора стартового узла при синхронном запуске.
const TriggerKey = "_trigger"
