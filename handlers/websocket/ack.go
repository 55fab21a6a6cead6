package websocket

import (
	"encoding/json"
	"fmt"
	"reflect"

	socketio "github.com/zishang520/socket.io/v2/socket"
)

type ackInvoker func(err error, payload any)

// extractAck splits a trailing acknowledgement callback off the event
// arguments. Clients may or may not send one.
func extractAck(datas []any) (ack ackInvoker, args []any) {
	if len(datas) == 0 {
		return nil, datas
	}

	ack = wrapAck(datas[len(datas)-1])
	if ack == nil {
		return nil, datas
	}
	return ack, datas[:len(datas)-1]
}

func wrapAck(candidate any) ackInvoker {
	if candidate == nil {
		return nil
	}

	value := reflect.ValueOf(candidate)
	if value.Kind() != reflect.Func {
		return nil
	}

	typ := value.Type()
	return func(err error, payload any) {
		args := make([]reflect.Value, typ.NumIn())
		for i := range args {
			var arg any
			switch {
			case typ.NumIn() == 1 && err != nil:
				arg = err
			case typ.NumIn() == 1:
				arg = payload
			case i == 0:
				arg = err
			case i == 1:
				arg = payload
			}
			args[i] = coerceValue(arg, typ.In(i))
		}
		value.Call(args)
	}
}

func coerceValue(value any, targetType reflect.Type) reflect.Value {
	if value == nil {
		return reflect.Zero(targetType)
	}

	rv := reflect.ValueOf(value)
	switch {
	case rv.Type().AssignableTo(targetType):
		return rv
	case rv.Type().ConvertibleTo(targetType):
		return rv.Convert(targetType)
	case targetType.Kind() == reflect.Interface && targetType.NumMethod() == 0:
		return rv
	case targetType.Kind() == reflect.Slice && targetType.Elem().Kind() == reflect.Interface:
		return reflect.ValueOf([]any{value})
	case targetType.Kind() == reflect.String:
		return reflect.ValueOf(fmt.Sprint(value)).Convert(targetType)
	}
	return reflect.Zero(targetType)
}

// respond answers through the ack when the client sent one and emits the
// event otherwise.
func respond(socket *socketio.Socket, ack ackInvoker, event string, payload any, ackErr error) {
	if ack != nil {
		ack(ackErr, payload)
		return
	}
	if event != "" && payload != nil {
		_ = socket.Emit(event, payload)
	}
}

// decodeArg converts a socket.io argument, already decoded into maps and
// float64s, into v.
func decodeArg(arg any, v any) error {
	raw, err := json.Marshal(arg)
	if err != nil {
		return fmt.Errorf("failed to encode event argument: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode event argument: %w", err)
	}
	return nil
}
