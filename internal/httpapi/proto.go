package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// maxRequestBody caps scan request bodies for both protobuf and JSON.
const maxRequestBody = 4096

const protobufContentType = "application/x-protobuf"

// isProtobuf reports whether the request carries a protobuf payload.
func isProtobuf(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return ct == protobufContentType ||
		ct == "application/protobuf" ||
		ct == "application/octet-stream"
}

func readProto(r *http.Request, msg proto.Message) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return err
	}
	return proto.Unmarshal(body, msg)
}

// writeProto encodes v as a google.protobuf.Struct by way of its JSON form.
func writeProto(c *gin.Context, status int, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal_error", "encode error")
		return
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		writeError(c, http.StatusInternalServerError, "internal_error", "encode error")
		return
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal_error", "encode error")
		return
	}
	data, err := proto.Marshal(st)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal_error", "proto marshal error")
		return
	}
	c.Data(status, protobufContentType, data)
}
