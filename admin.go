package main

import (
	"errors"
	"log"
	"strings"

	"arena-server/arena"
	"arena-server/protocol"
)

// handleCommand runs a chat command. Password checks happen here, on the
// connection's goroutine, so bcrypt never delays the arena.
func (c *Client) handleCommand(cmd string, args []string) {
	switch strings.ToLower(cmd) {
	case "login":
		c.adminLogin(args)
	case "kick":
		if len(args) == 0 {
			c.serverMsg("Usage: kick <name> [reason]")
			return
		}
		c.hub.arena.Submit(arena.Kick{ID: c.id, Name: args[0], Reason: strings.Join(args[1:], " ")})
	case "help":
		c.serverMsg("Commands: login <password>, kick <name> [reason]")
	default:
		c.serverMsg("Unknown command: " + cmd)
	}
}

func (c *Client) adminLogin(args []string) {
	if c.hub.auth == nil || len(args) != 1 {
		c.serverMsg("Usage: login <password>")
		return
	}
	token, err := c.hub.auth.AdminLogin(c.name, args[0], c.remoteAddr)
	switch {
	case errors.Is(err, ErrBadPassword):
		c.serverMsg("Password incorrect, attempt logged.")
		return
	case err != nil:
		c.serverMsg(err.Error())
		return
	}
	ev, err := protocol.EncodeEvent(protocol.EventAdminToken, protocol.AdminToken{Token: token})
	if err != nil {
		log.Printf("encode admin token: %v", err)
		return
	}
	c.Send(ev)
	c.hub.arena.Submit(arena.GrantAdmin{ID: c.id})
}

func (c *Client) serverMsg(msg string) {
	c.Send(protocol.MustEvent(protocol.EventServerMsg, protocol.Reason{Message: msg}))
}
