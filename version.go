package bluegreen

// Version is the release of the tool. It is overridden at link time:
//
//	go build -ldflags "-X github.com/aretw0/bluegreen.Version=v1.2.0" ./cmd/bluegreen
var Version = "dev"
