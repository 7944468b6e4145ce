package domain

import "errors"

var (
	// ErrOutsideTradingHours se devuelve al intentar una orden de mercado
	// fuera de las sesiones. Es recuperable: quien llama registra y sigue.
	ErrOutsideTradingHours = errors.New("not in trading time")

	// ErrEmptyLadder indica que un tick no tiene niveles en el lado pedido.
	ErrEmptyLadder = errors.New("ladder is empty")

	// ErrInvalidSide indica un BSFlag desconocido en el tape.
	ErrInvalidSide = errors.New("unexpected direction")
)
