package main

import (
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/hupe1980/llmfanout/handler"
	"github.com/hupe1980/llmfanout/logging"
)

func main() {
	h := handler.New(func(o *handler.Options) {
		o.Logger = logging.NewJSONLogger(os.Stdout, slog.LevelInfo)
	})

	lambda.Start(h.Handle)
}
