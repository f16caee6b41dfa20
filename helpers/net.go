package helpers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hibiki-discord/hibiki/version"
)

var DEFAULT_UA = "Hibiki/" + version.BOT_VERSION + " (https://github.com/hibiki-discord/hibiki)"

// DefaultClient is the http client shared by the API-backed plugins
var DefaultClient = &http.Client{
	Timeout: 15 * time.Second,
}

// NetGet executes a GET request to url with the bot user-agent
func NetGet(url string) []byte {
	return NetGetUA(url, DEFAULT_UA)
}

// NetGetUA performs a GET request with a custom user-agent
func NetGetUA(url string, useragent string) []byte {
	result, err := NetGetUAWithError(url, useragent)
	Relax(err)
	return result
}

func NetGetUAWithError(url string, useragent string) ([]byte, error) {
	return NetGetUAWithErrorAndTimeout(url, useragent, 15*time.Second)
}

func NetGetUAWithErrorAndTimeout(url string, useragent string, timeout time.Duration) ([]byte, error) {
	client := &http.Client{
		Timeout: timeout,
	}

	request, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return []byte{}, err
	}

	request.Header.Set("User-Agent", useragent)

	response, err := client.Do(request)
	if err != nil {
		return []byte{}, err
	}

	// Only continue if code was 200
	if response.StatusCode != 200 {
		return []byte{}, errors.New("expected status 200; got " + strconv.Itoa(response.StatusCode))
	}

	defer response.Body.Close()

	buf := bytes.NewBuffer(nil)
	_, err = io.Copy(buf, response.Body)
	if err != nil {
		return []byte{}, err
	}

	return buf.Bytes(), nil
}

// GetDiscordColorFromHex converts a hex color string to a discord
// embed color int, falls back to grey on invalid input
func GetDiscordColorFromHex(hex string) int {
	colorInt, err := strconv.ParseInt(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil {
		return 0x0FADED
	}

	return int(colorInt)
}
