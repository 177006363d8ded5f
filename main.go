/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/claritel/admin-console/cmd"

func main() {
	cmd.Execute()
}
