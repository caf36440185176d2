package util

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/go-connections/nat"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const mosquittoConf = `listener 1883
allow_anonymous true
persistence false
log_dest stdout
log_type error
log_type warning
connection_messages true
`

// startContainer runs req and returns host:port for the first exposed port
// together with a cleanup function.
func startContainer(ctx context.Context, req tc.ContainerRequest, port nat.Port) (string, func(), error) {
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = cont.Terminate(context.Background()) }
	host, err := cont.Host(ctx)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	mapped, err := cont.MappedPort(ctx, port)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	return fmt.Sprintf("%s:%s", host, mapped.Port()), cleanup, nil
}

// StartMosquitto launches a disposable Mosquitto broker and returns its
// tcp:// URL once it accepts connections.
func StartMosquitto(ctx context.Context) (string, func(), error) {
	dir, err := os.MkdirTemp("", "mosq")
	if err != nil {
		return "", nil, err
	}
	path := filepath.Join(dir, "mosquitto.conf")
	if err := os.WriteFile(path, []byte(mosquittoConf), 0o644); err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, err
	}

	addr, stop, err := startContainer(ctx, tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{{
			HostFilePath:      path,
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0o644,
		}},
	}, "1883")
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, err
	}
	cleanup := func() {
		stop()
		_ = os.RemoveAll(dir)
	}

	broker := "tcp://" + addr
	waitCtx, cancel := context.WithTimeout(ctx, ReadyTimeout)
	defer cancel()
	if err := waitUntil(waitCtx, func() bool { return mqttReady(broker) }); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("mosquitto not ready: %w", err)
	}
	return broker, cleanup, nil
}

// StartRedis launches a disposable Redis server and returns its host:port
// once it answers PING.
func StartRedis(ctx context.Context) (string, func(), error) {
	addr, cleanup, err := startContainer(ctx, tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}, "6379")
	if err != nil {
		return "", nil, err
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = rdb.Close() }()
	waitCtx, cancel := context.WithTimeout(ctx, ReadyTimeout)
	defer cancel()
	if err := waitUntil(waitCtx, func() bool { return rdb.Ping(waitCtx).Err() == nil }); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("redis not ready: %w", err)
	}
	return addr, cleanup, nil
}

func mqttReady(broker string) bool {
	cli := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("ready-check"))
	token := cli.Connect()
	token.Wait()
	if token.Error() != nil {
		return false
	}
	cli.Disconnect(100)
	return true
}

func waitUntil(ctx context.Context, ready func() bool) error {
	for !ready() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	return nil
}
