// Package routing reports the recipient keys the mediator currently routes.
package routing
