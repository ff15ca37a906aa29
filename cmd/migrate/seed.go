package main

import (
	"context"
	"fmt"

	"github.com/upb/ip-registry/models"
	"github.com/upb/ip-registry/repositories"
	"go.uber.org/zap"
)

type seedUser struct {
	name         string
	email        string
	password     string
	isSuperAdmin bool
}

// Seeded in order so the admin gets id 1, john 2 and jane 3 on a fresh table
var seedUserRows = []seedUser{
	{"Super Admin", "admin@ad-group.com.au", "admin123", true},
	{"John Doe", "john@ad-group.com.au", "password123", false},
	{"Jane Smith", "jane@ad-group.com.au", "password123", false},
}

type seedIPAddress struct {
	address   string
	label     string
	comment   string
	createdBy string
}

var seedIPAddressRows = []seedIPAddress{
	{"192.168.1.1", "Main Router", "Office main router", "admin@ad-group.com.au"},
	{"192.168.1.10", "Web Server", "Production web server", "admin@ad-group.com.au"},
	{"192.168.1.20", "Database Server", "Primary database server", "john@ad-group.com.au"},
	{"10.0.0.1", "VPN Gateway", "Company VPN gateway", "john@ad-group.com.au"},
	{"2001:db8:85a3::8a2e:370:7334", "IPv6 Test Server", "Testing IPv6 connectivity", "admin@ad-group.com.au"},
	{"172.16.0.5", "Mail Server", "SMTP/IMAP server", "jane@ad-group.com.au"},
}

// seedUsers inserts the fixture principals; existing emails are kept as they are
func seedUsers(ctx context.Context, users repositories.UserRepository, logger *zap.Logger) error {
	for _, row := range seedUserRows {
		user, err := models.NewUser(row.name, row.email, row.password, row.isSuperAdmin)
		if err != nil {
			return fmt.Errorf("failed to build user %s: %w", row.email, err)
		}
		if err := users.Create(ctx, user); err != nil {
			return err
		}
		logger.Info("seeded user", zap.Int64("id", user.ID), zap.String("email", row.email))
	}
	return nil
}

// seedIPAddresses inserts the fixture registry entries not already live
func seedIPAddresses(ctx context.Context, ips repositories.IPAddressRepository, logger *zap.Logger) error {
	for _, row := range seedIPAddressRows {
		exists, err := ips.ExistsLive(ctx, row.address)
		if err != nil {
			return err
		}
		if exists {
			logger.Debug("ip address already seeded", zap.String("ip_address", row.address))
			continue
		}

		comment := row.comment
		ip, ok := models.NewIPAddress(row.address, row.label, &comment, row.createdBy)
		if !ok {
			return fmt.Errorf("invalid fixture address %q", row.address)
		}
		if err := ips.Create(ctx, ip); err != nil {
			return err
		}
		logger.Info("seeded ip address", zap.Int64("id", ip.ID), zap.String("ip_address", ip.IPAddress))
	}
	return nil
}
