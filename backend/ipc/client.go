package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
)

var ErrPingFail = errors.New("ping failed")

const baseURL = "http://mediadeck"

type Client struct {
	httpC http.Client
}

// Connect attempts to connect to the IPC socket as client.
func Connect() (*Client, error) {
	return connect(func() (net.Conn, error) { return Dial() })
}

func connect(dial func() (net.Conn, error)) (*Client, error) {
	client := &Client{httpC: http.Client{
		Transport: &http.Transport{
			DialContext: func(_ context.Context, _, _ string) (net.Conn, error) {
				return dial()
			},
		},
	}}
	if err := client.Ping(); err != nil {
		log.Println("ping error")
		return nil, err
	}
	return client, nil
}

func (c *Client) Ping() error {
	if c.makeSimpleRequest(http.MethodGet, PingPath) != nil {
		return ErrPingFail
	}
	return nil
}

// Status decodes the running instance's status snapshot into v.
func (c *Client) Status(v any) error {
	resp, err := c.httpC.Get(baseURL + StatusPath)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeErr(resp.Body)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *Client) AddFiles(paths []string) error {
	b, err := json.Marshal(AddFiles{Paths: paths})
	if err != nil {
		return err
	}
	return c.doPost(AddPath, bytes.NewReader(b))
}

func (c *Client) Play() error {
	return c.makeSimpleRequest(http.MethodPost, PlayPath)
}

func (c *Client) Pause() error {
	return c.makeSimpleRequest(http.MethodPost, PausePath)
}

func (c *Client) PlayPause() error {
	return c.makeSimpleRequest(http.MethodPost, PlayPausePath)
}

func (c *Client) Stop() error {
	return c.makeSimpleRequest(http.MethodPost, StopPath)
}

func (c *Client) Next() error {
	return c.makeSimpleRequest(http.MethodPost, NextPath)
}

func (c *Client) Previous() error {
	return c.makeSimpleRequest(http.MethodPost, PreviousPath)
}

func (c *Client) Seek(fraction float64) error {
	return c.makeSimpleRequest(http.MethodPost, SeekToFractionPath(fraction))
}

func (c *Client) SetVolume(vol int) error {
	return c.makeSimpleRequest(http.MethodPost, SetVolumePath(vol))
}

func (c *Client) SetRepeatMode(mode string) error {
	return c.makeSimpleRequest(http.MethodPost, SetRepeatModePath(mode))
}

func (c *Client) Quit() error {
	return c.makeSimpleRequest(http.MethodPost, QuitPath)
}

func (c *Client) makeSimpleRequest(method string, path string) error {
	if method == http.MethodPost {
		return c.doPost(path, nil)
	}
	resp, err := c.httpC.Get(baseURL + path)
	if err != nil {
		log.Printf("http err: %v\n", err)
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeErr(resp.Body)
	}
	return nil
}

func (c *Client) doPost(path string, body io.Reader) error {
	resp, err := c.httpC.Post(baseURL+path, "application/json", body)
	if err != nil {
		log.Printf("http err: %v\n", err)
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeErr(resp.Body)
	}
	return nil
}

func decodeErr(body io.Reader) error {
	var r Response
	json.NewDecoder(body).Decode(&r)
	if r.Error == "" {
		r.Error = "request failed"
	}
	return errors.New(r.Error)
}
