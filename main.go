package main

import (
	"UndercoverFM/cmd"
)

func main() {
	// Execute 出错时 cobra 会直接退出进程
	cmd.Execute()
}
