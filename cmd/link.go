// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Scaraworks

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/scaraworks/plotstream/pkg/plclink"
	"github.com/scaraworks/plotstream/pkg/stream"
)

// getPassword retrieves the gateway password from the environment or
// prompts the user.
func getPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv("PLOTSTREAM_PASSWORD"); pw != "" {
		return pw, nil
	}

	// Prompt user for password (hide input)
	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr) // newline after password
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr) // newline after password
	return string(passwordBytes), nil
}

// linkConfig assembles a link configuration from the persistent flags,
// prompting for the gateway password when needed.
func linkConfig() (plclink.Config, error) {
	cfg := plclink.Config{
		Host:          plcHost,
		Port:          plcPort,
		SerialPort:    serialPort,
		BaudRate:      baudRate,
		GatewayURL:    wsURL,
		GatewayUser:   wsUsername,
		SkipSSLVerify: wsNoSSLVerify,
		Timeout:       linkTimeout,
		Retries:       linkRetries,
	}

	if cfg.Host == "" && cfg.SerialPort == "" && cfg.GatewayURL == "" {
		return plclink.Config{}, fmt.Errorf("one of --host, --serial or --url must be specified")
	}

	if cfg.GatewayURL != "" && cfg.GatewayUser != "" {
		password, err := getPassword()
		if err != nil {
			return plclink.Config{}, err
		}
		cfg.GatewayPassword = password
	}

	return cfg, nil
}

// openSession opens the controller link selected by the persistent
// flags. The caller must Close the session.
func openSession() (*plclink.Session, string, error) {
	cfg, err := linkConfig()
	if err != nil {
		return nil, "", err
	}

	session, err := plclink.Open(cfg)
	if err != nil {
		return nil, "", err
	}

	return session, cfg.Endpoint(), nil
}

// activeLayout returns the register layout: the built-in bench wiring,
// or the file named by --layout.
func activeLayout() (stream.Layout, error) {
	if layoutPath == "" {
		return stream.DefaultLayout(), nil
	}
	return stream.LoadLayout(layoutPath)
}
