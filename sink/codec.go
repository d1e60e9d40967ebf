package sink

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ceyewan/logsys/xerrors"
)

// Codec 定义 Record 的序列化方式，供消息队列类 Sink 使用
type Codec interface {
	Marshal(rec *Record) ([]byte, error)
	Unmarshal(data []byte, rec *Record) error
	// ContentType 写入消息头，便于消费端选择解码方式
	ContentType() string
}

// JSONCodec JSON 序列化
type JSONCodec struct{}

func (JSONCodec) Marshal(rec *Record) ([]byte, error) {
	return json.Marshal(rec)
}

func (JSONCodec) Unmarshal(data []byte, rec *Record) error {
	return json.Unmarshal(data, rec)
}

func (JSONCodec) ContentType() string {
	return "application/json"
}

// MsgpackCodec MessagePack 序列化，体积更小
type MsgpackCodec struct{}

func (MsgpackCodec) Marshal(rec *Record) ([]byte, error) {
	return msgpack.Marshal(rec)
}

func (MsgpackCodec) Unmarshal(data []byte, rec *Record) error {
	return msgpack.Unmarshal(data, rec)
}

func (MsgpackCodec) ContentType() string {
	return "application/msgpack"
}

// NewCodec 根据名称创建 Codec
//
// 支持的类型：
//   - "json"（默认）
//   - "msgpack"
func NewCodec(name string) (Codec, error) {
	switch name {
	case "json", "":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	default:
		return nil, xerrors.Wrapf(xerrors.ErrInvalidInput, "unsupported codec %q", name)
	}
}
