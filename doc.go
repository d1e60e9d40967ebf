// Package logsys 把一条日志消息与一段可选的主体计算关联起来。
//
// 主体在调用方的 goroutine 中同步执行并计时；主体的失败（返回 error 或 panic）
// 与消息函数的 panic 都会记录到会话上，随后会话被 Finalize 并输出到 Sink。
//
// 三类入口：
//
//	// 只有消息
//	logsys.Log(f.New, func(s *session.Std) { s.Print("service started") })
//
//	// 主体 + 消息，失败原样返回给调用方
//	n, err := logsys.LogBody(f.New,
//	    func(s *session.Std, n optional.Value[int]) { s.Printf("loaded %d rows", n.OrElse(0)) },
//	    func() (int, error) { return loadRows(ctx) },
//	)
//
//	// 主体 + 消息，失败被捕获，结果为空
//	v := logsys.Catch(f.New, logsys.Simple[*session.Std, optional.Value[int]](
//	    func(s *session.Std) { s.Print("warm cache") }),
//	    func() (int, error) { return warm(ctx) },
//	)
//
// 消息函数永远不会让调用失败：它的 panic 被记录为日志异常后丢弃。主体的 panic
// 在 Finalize 之后以原始值重新抛出（Log 系列）或被吞掉（Catch 系列）。
//
// 会话的构造由 session.Factory 决定，通常是 (*session.StdFactory).New，
// 或由 Setup 根据配置构建的工厂。
package logsys
